package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDetectIncidentsRequiresThreeAlertsOrCritical(t *testing.T) {
	ib := NewIncidentBook(3)
	now := time.Now()

	byPrefix := map[string][]Alert{
		"bus": {{ID: "1", Type: AlertWarning}, {ID: "2", Type: AlertWarning}},
	}
	require.Empty(t, ib.DetectIncidents(byPrefix, now))

	byPrefix["bus"] = append(byPrefix["bus"], Alert{ID: "3", Type: AlertWarning})
	created := ib.DetectIncidents(byPrefix, now)
	require.Len(t, created, 1)
	require.Equal(t, IncidentDetected, created[0].State)
}

func TestDetectIncidentsOpensOnSingleCriticalAlert(t *testing.T) {
	ib := NewIncidentBook(3)
	byPrefix := map[string][]Alert{"bus": {{ID: "1", Type: AlertCritical}}}
	created := ib.DetectIncidents(byPrefix, time.Now())
	require.Len(t, created, 1)
}

func TestAttemptAutoRecoverySucceeds(t *testing.T) {
	ib := NewIncidentBook(3)
	created := ib.DetectIncidents(map[string][]Alert{"bus": {{ID: "1", Type: AlertCritical}}}, time.Now())
	ib.RegisterProcedure("bus", func(context.Context) error { return nil })

	err := ib.AttemptAutoRecovery(context.Background(), created[0].ID)
	require.NoError(t, err)

	snap := ib.Snapshot()
	require.Equal(t, IncidentRecovered, snap[0].State)
}

func TestAttemptAutoRecoveryStopsAfterMaxRetries(t *testing.T) {
	ib := NewIncidentBook(1)
	created := ib.DetectIncidents(map[string][]Alert{"bus": {{ID: "1", Type: AlertCritical}}}, time.Now())
	failing := errors.New("reconnect failed")
	ib.RegisterProcedure("bus", func(context.Context) error { return failing })

	err1 := ib.AttemptAutoRecovery(context.Background(), created[0].ID)
	require.Error(t, err1)
	err2 := ib.AttemptAutoRecovery(context.Background(), created[0].ID)
	require.NoError(t, err2) // retries exhausted, no-op
}

func TestResolveIncidentManual(t *testing.T) {
	ib := NewIncidentBook(3)
	created := ib.DetectIncidents(map[string][]Alert{"bus": {{ID: "1", Type: AlertCritical}}}, time.Now())
	require.True(t, ib.ResolveIncident(created[0].ID, "fixed manually"))
	snap := ib.Snapshot()
	require.Equal(t, IncidentResolved, snap[0].State)
}

func TestAutoResolveRecoveredWhenAllAlertsResolved(t *testing.T) {
	alertBook := NewAlertBook(testThresholds(), testEscalation())
	old := time.Now().Add(-10 * time.Minute)
	a := alertBook.Evaluate("bus.kafka", "cpu_percent", 90, old)
	alertBook.Evaluate("bus.kafka", "cpu_percent", 10, old.Add(time.Second))
	alertBook.Evaluate("bus.kafka", "cpu_percent", 10, old.Add(2*time.Second))

	ib := NewIncidentBook(3)
	created := ib.DetectIncidents(map[string][]Alert{"bus": {*a}}, old)
	require.Len(t, created, 1)

	resolved := ib.AutoResolveRecovered(alertBook, time.Now())
	require.Len(t, resolved, 1)
}
