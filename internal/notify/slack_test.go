package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/cladc/internal/monitoring"
)

func TestNewEscalationNotifier(t *testing.T) {
	t.Run("returns nil when token empty", func(t *testing.T) {
		assert.Nil(t, NewEscalationNotifier("", "C123"))
	})

	t.Run("returns nil when channel empty", func(t *testing.T) {
		assert.Nil(t, NewEscalationNotifier("xoxb-test", ""))
	})

	t.Run("returns notifier when configured", func(t *testing.T) {
		assert.NotNil(t, NewEscalationNotifier("xoxb-test", "C123"))
	})
}

func TestEscalationNotifier_NilReceiver(t *testing.T) {
	var n *EscalationNotifier

	// Must not panic even though n is nil.
	n.NotifyEscalated(context.Background(), "admin", []monitoring.Alert{{ID: "a1"}})
}

func TestEscalationNotifier_NotifyEscalated_PostsOneMessagePerAlert(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1234.5678"}`))
	}))
	defer srv.Close()

	client := NewClientWithAPIURL("xoxb-test", "C123", srv.URL+"/")
	n := NewEscalationNotifierWithClient(client)

	alerts := []monitoring.Alert{
		{ID: "a1", Monitor: "system.cpu", Metric: "cpu_percent", Severity: monitoring.SeverityHigh, Type: monitoring.AlertCritical, FirstSeen: time.Now()},
		{ID: "a2", Monitor: "system.memory", Metric: "memory_fraction", Severity: monitoring.SeverityMedium, Type: monitoring.AlertWarning, FirstSeen: time.Now()},
	}

	n.NotifyEscalated(context.Background(), "admin", alerts)

	assert.Equal(t, 2, calls)
}

func TestEscalationNotifier_NotifyEscalated_FailsOpenOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer srv.Close()

	client := NewClientWithAPIURL("xoxb-test", "C123", srv.URL+"/")
	n := NewEscalationNotifierWithClient(client)

	require.NotPanics(t, func() {
		n.NotifyEscalated(context.Background(), "team", []monitoring.Alert{{ID: "a1"}})
	})
}
