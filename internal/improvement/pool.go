package improvement

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/cladc/internal/capability"
	"github.com/codeready-toolchain/cladc/internal/cladcerr"
	"github.com/codeready-toolchain/cladc/internal/modelregistry"
)

// queuedTask pairs a task with the context its worker should run under,
// so AbortTask can cancel an in-flight run, which is abortable at any
// step.
type queuedTask struct {
	task   *ImprovementTask
	ctx    context.Context
	cancel context.CancelFunc
}

// Pipeline is the improvement pipeline: a bounded worker pool draining
// a FIFO queue of ImprovementTasks, with a fixed worker count polling a
// shared queue, a per-item cancel-function registry, and graceful stop.
type Pipeline struct {
	registry             *modelregistry.Registry
	cap                  capability.TrainingCapability
	testDeployPassRate   float64
	performanceThreshold float64
	maxConcurrentTasks   int
	defaultBackup        bool

	queue chan *queuedTask

	mu      sync.RWMutex
	tasks   map[string]*ImprovementTask
	cancels map[string]context.CancelFunc

	pendingData     *safeMap[capability.TrainingData]
	pendingTraining *safeMap[capability.TrainingResult]
	abTests         abTestLedger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Config bundles the tunables Pipeline needs from the global config.
type Config struct {
	TestDeployPassRate       float64
	PerformanceThreshold     float64
	MaxConcurrentTasks       int
	BackupBeforeUpdate       bool
	ValidationMinPerformance float64
}

// New constructs a Pipeline over registry and cap.
func New(registry *modelregistry.Registry, cap capability.TrainingCapability, cfg Config) *Pipeline {
	maxTasks := cfg.MaxConcurrentTasks
	if maxTasks <= 0 {
		maxTasks = 3
	}
	return &Pipeline{
		registry:             registry,
		cap:                  cap,
		testDeployPassRate:   cfg.TestDeployPassRate,
		performanceThreshold: cfg.PerformanceThreshold,
		maxConcurrentTasks:   maxTasks,
		defaultBackup:        cfg.BackupBeforeUpdate,
		queue:                make(chan *queuedTask, 1024),
		tasks:                make(map[string]*ImprovementTask),
		cancels:              make(map[string]context.CancelFunc),
		pendingData:          newSafeMap[capability.TrainingData](),
		pendingTraining:      newSafeMap[capability.TrainingResult](),
		stopCh:               make(chan struct{}),
	}
}

// Start spawns maxConcurrentTasks worker goroutines draining the queue.
func (p *Pipeline) Start(ctx context.Context) {
	for i := 0; i < p.maxConcurrentTasks; i++ {
		p.wg.Add(1)
		go p.workerLoop(ctx, i)
	}
}

// Stop signals workers to exit once their current task finishes and
// waits for them, bounded by a 5s grace period.
func (p *Pipeline) Stop() {
	close(p.stopCh)
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		slog.Warn("improvement pipeline stop grace period exceeded")
	}
}

func (p *Pipeline) workerLoop(parent context.Context, idx int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case <-parent.Done():
			return
		case qt := <-p.queue:
			p.markInProgress(qt.task)
			p.runPipeline(qt.ctx, qt.task)
			p.removeCancel(qt.task.ID)
		}
	}
}

func (p *Pipeline) markInProgress(task *ImprovementTask) {
	p.mu.Lock()
	task.Status = StatusInProgress
	task.UpdatedAt = time.Now().UTC()
	p.mu.Unlock()
}

func (p *Pipeline) store(task *ImprovementTask) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks[task.ID] = task
}

func (p *Pipeline) removeCancel(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cancels, id)
}

// EnqueueTask creates a pending ImprovementTask for modelName and places
// it on the FIFO queue; excess tasks beyond maxConcurrentTasks simply
// wait in the channel buffer, drained FIFO as workers free up.
func (p *Pipeline) EnqueueTask(ctx context.Context, modelName string, trigger TriggerSource, opts Options) (*ImprovementTask, error) {
	if opts.ValidationMinPerformance <= 0 {
		opts.ValidationMinPerformance = 0.7
	}

	task := &ImprovementTask{
		ID:        uuid.NewString(),
		ModelName: modelName,
		Trigger:   trigger,
		Status:    StatusPending,
		Options:   opts,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	p.store(task)

	taskCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancels[task.ID] = cancel
	p.mu.Unlock()

	select {
	case p.queue <- &queuedTask{task: task, ctx: taskCtx, cancel: cancel}:
		return task, nil
	default:
		cancel()
		p.removeCancel(task.ID)
		return nil, cladcerr.New(cladcerr.CapacityExceeded, "improvement", "task queue full")
	}
}

// AbortTask cancels an in-progress or pending task's context.
func (p *Pipeline) AbortTask(id string) error {
	p.mu.Lock()
	cancel, ok := p.cancels[id]
	p.mu.Unlock()
	if !ok {
		return cladcerr.New(cladcerr.NotFound, "improvement", "task not found: "+id)
	}
	cancel()
	return nil
}

// Tasks returns a copy of every known task.
func (p *Pipeline) Tasks() []ImprovementTask {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]ImprovementTask, 0, len(p.tasks))
	for _, t := range p.tasks {
		out = append(out, *t)
	}
	return out
}
