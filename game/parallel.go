package game

import (
	"runtime"
	"sync"

	"github.com/pthm-cable/grapple/tentacle"
)

// workerPool runs appendage physics jobs on persistent goroutines. It
// implements tentacle.Executor; callers join through Appendage.Complete.
type workerPool struct {
	numWorkers int

	workChan chan func()    // sends jobs to workers
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

var _ tentacle.Executor = (*workerPool)(nil)

// newWorkerPool creates a pool of n workers; n <= 0 means GOMAXPROCS.
func newWorkerPool(n int) *workerPool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return &workerPool{numWorkers: n}
}

// startWorkers launches the worker goroutines.
func (p *workerPool) startWorkers() {
	if p.running {
		return
	}

	p.workChan = make(chan func(), p.numWorkers*4)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stopWorkers signals all workers to exit and waits for them. Jobs already
// queued are drained first so no appendage is left waiting on a join.
func (p *workerPool) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	for job := range p.workChan {
		job()
	}
	p.running = false
}

// Submit queues job, starting the workers on first use.
func (p *workerPool) Submit(job func()) {
	if !p.running {
		p.startWorkers()
	}
	p.workChan <- job
}

// worker runs jobs until stopped.
func (p *workerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			return
		case job := <-p.workChan:
			job()
		}
	}
}
