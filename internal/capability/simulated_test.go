package capability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimulatedTrainIsDeterministicPerModel(t *testing.T) {
	s := NewSimulated()
	r1, err := s.Train(context.Background(), "angel_learning_model", TrainingData{})
	require.NoError(t, err)
	r2, err := s.Train(context.Background(), "angel_learning_model", TrainingData{})
	require.NoError(t, err)
	require.Equal(t, r1.Performance, r2.Performance)
}

func TestSimulatedTestDeployScalesWithPerformance(t *testing.T) {
	s := NewSimulated()
	result, err := s.TestDeploy(context.Background(), "m", TrainingResult{Performance: 1.0})
	require.NoError(t, err)
	require.Equal(t, 50, result.PassedSubtests)
	require.InDelta(t, 1.0, result.PassRate(), 0.001)
}

func TestSimulatedRespectsCancellation(t *testing.T) {
	s := NewSimulated()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Train(ctx, "m", TrainingData{})
	require.Error(t, err)
}
