package improvement

import (
	"sync"
	"time"

	"github.com/codeready-toolchain/cladc/internal/modelregistry"
)

// ABTestDuration is the fixed evaluation window for every A/B test.
const ABTestDuration = 30 * time.Minute

// ABTest compares a model's current deployment against its previous one.
type ABTest struct {
	ModelName          string                       `json:"model_name"`
	Current             modelregistry.DeploymentRecord `json:"current"`
	Previous             modelregistry.DeploymentRecord `json:"previous"`
	StartedAt            time.Time                    `json:"started_at"`
	Resolved             bool                         `json:"resolved"`
	Winner               string                       `json:"winner,omitempty"` // "current" | "previous"
	SuggestDeployment     bool                         `json:"suggest_deployment"`
}

type abTestLedger struct {
	mu    sync.Mutex
	tests []*ABTest
}

// RunABTestSweep enqueues a new A/B test for every model with at least
// two deployment-history entries, run on a cadence a multiple of the
// improvement interval.
func (p *Pipeline) RunABTestSweep() []ABTest {
	var started []ABTest
	for _, m := range p.registry.List() {
		if len(m.DeploymentHistory) < 2 {
			continue
		}
		current := m.DeploymentHistory[len(m.DeploymentHistory)-1]
		previous := m.DeploymentHistory[len(m.DeploymentHistory)-2]
		test := &ABTest{
			ModelName: m.Name,
			Current:   current,
			Previous:  previous,
			StartedAt: time.Now().UTC(),
		}
		p.abTests.mu.Lock()
		p.abTests.tests = append(p.abTests.tests, test)
		p.abTests.mu.Unlock()
		started = append(started, *test)
	}
	return started
}

// ResolveDueABTests picks a winner for every test whose 30-minute
// window has elapsed. A winner selection suggests a deployment if the
// improvement is >= performanceThreshold.
func (p *Pipeline) ResolveDueABTests(now time.Time) []ABTest {
	p.abTests.mu.Lock()
	defer p.abTests.mu.Unlock()

	var resolved []ABTest
	for _, t := range p.abTests.tests {
		if t.Resolved || now.Sub(t.StartedAt) < ABTestDuration {
			continue
		}
		improvement := t.Current.Performance - t.Previous.Performance
		t.Resolved = true
		if improvement >= 0 {
			t.Winner = "current"
		} else {
			t.Winner = "previous"
		}
		t.SuggestDeployment = improvement >= p.performanceThreshold
		resolved = append(resolved, *t)
	}
	return resolved
}

// PendingABTests returns a copy of every unresolved test.
func (p *Pipeline) PendingABTests() []ABTest {
	p.abTests.mu.Lock()
	defer p.abTests.mu.Unlock()
	var out []ABTest
	for _, t := range p.abTests.tests {
		if !t.Resolved {
			out = append(out, *t)
		}
	}
	return out
}
