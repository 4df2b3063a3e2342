package capability

import (
	"context"
	"hash/fnv"
	"math"
	"time"
)

// Simulated is a deterministic stand-in for a real training/inference
// backend: canned responses for testing, to be replaced by a real
// client. Production wiring would inject a capability backed by
// whatever ML runtime owns train/infer; this package only specifies the
// seam.
type Simulated struct{}

// NewSimulated returns a Simulated capability.
func NewSimulated() *Simulated { return &Simulated{} }

func (s *Simulated) CollectData(ctx context.Context, modelName string, components []string) (TrainingData, error) {
	if err := ctx.Err(); err != nil {
		return TrainingData{}, err
	}
	return TrainingData{Components: components}, nil
}

// Train derives a deterministic-but-varying performance figure from the
// model name so repeated calls against the same model trend upward,
// without requiring an actual learning algorithm.
func (s *Simulated) Train(ctx context.Context, modelName string, data TrainingData) (TrainingResult, error) {
	if err := ctx.Err(); err != nil {
		return TrainingResult{}, err
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(modelName))
	base := float64(h.Sum32()%1000) / 1000
	performance := math.Min(0.99, 0.5+base*0.45)
	return TrainingResult{
		Performance:  performance,
		Iterations:   100,
		Converged:    performance > 0.6,
		TrainingTime: 2 * time.Second,
	}, nil
}

func (s *Simulated) TestDeploy(ctx context.Context, modelName string, result TrainingResult) (SmokeTestResult, error) {
	if err := ctx.Err(); err != nil {
		return SmokeTestResult{}, err
	}
	total := 50
	passed := int(result.Performance * float64(total))
	return SmokeTestResult{PassedSubtests: passed, TotalSubtests: total}, nil
}

func (s *Simulated) ProcessBatch(ctx context.Context, algorithm string, batch []Experience) error {
	return ctx.Err()
}

func (s *Simulated) Infer(ctx context.Context, algorithm string, state any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return map[string]any{"algorithm": algorithm, "action": "noop"}, nil
}

var _ Capability = (*Simulated)(nil)
