package eventstore

import "sync"

// producerShards hands out one mutex per producer tag so that appends
// from different angels never block each other, while appends from the
// same angel are serialised: within one producer, append order is
// serialised; across producers, timestamps are the only ordering.
type producerShards struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newProducerShards() *producerShards {
	return &producerShards{locks: make(map[string]*sync.Mutex)}
}

func (p *producerShards) lockFor(producer string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[producer]
	if !ok {
		l = &sync.Mutex{}
		p.locks[producer] = l
	}
	return l
}
