// Package orchestrator fans a batch of dataset reads out across workers
// and funnels the results back onto a promise.Promise, grounded on
// h5coro.py's H5Coro constructor (one thread per requested dataset,
// joined implicitly through H5Promise) and h5dataset.py's thread-vs-process
// split (a shared driver/lock in thread mode, an independent driver copy
// and a dedicated result buffer in process mode).
package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/SlideRuleEarth/h5coro-go/internal/driver"
	"github.com/SlideRuleEarth/h5coro-go/internal/promise"
)

// Mode selects how a worker obtains its I/O handle.
type Mode int

const (
	// ThreadMode shares one driver (and, by extension, one RangeCache and
	// its lock) across every worker goroutine — cheap to start, workers
	// serialize on driver access.
	ThreadMode Mode = iota

	// ProcessMode gives each worker an independently copied driver (its
	// own connection/file descriptor), so workers never contend with one
	// another. The DatasetResult each worker produces owns its result
	// buffer outright rather than sharing an OS shared-memory segment —
	// Go goroutines already share the process address space, so the
	// multiprocessing.shared_memory indirection the reference
	// implementation needs has no counterpart here.
	ProcessMode
)

// Request names one dataset to read and the function that reads it, given
// the driver.Driver a worker should use.
type Request struct {
	Key  string
	Read func(ctx context.Context, d driver.Driver) (any, error)
}

// Orchestrator dispatches a batch of Requests against a shared driver,
// publishing each result onto a Promise as it completes.
type Orchestrator struct {
	drv  driver.Driver
	mode Mode
}

// New builds an Orchestrator reading through drv. In ProcessMode, drv.Copy()
// is called once per request to hand each worker an independent handle.
func New(drv driver.Driver, mode Mode) *Orchestrator {
	return &Orchestrator{drv: drv, mode: mode}
}

// Dispatch runs every request and returns a Promise that resolves as each
// completes. When block is true, Dispatch does not return until all
// requests have finished (or ctx is canceled) — matching H5Coro's blocking
// constructor path (datasets=[...]) plus an explicit join. When block is
// false, Dispatch returns immediately and requests continue resolving onto
// the Promise in the background, matching the non-blocking/background
// thread path.
func (o *Orchestrator) Dispatch(ctx context.Context, reqs []Request, block bool) *promise.Promise {
	keys := make([]string, len(reqs))
	for i, r := range reqs {
		keys[i] = r.Key
	}
	p := promise.New(keys)

	run := func() {
		g, gctx := errgroup.WithContext(ctx)
		for _, req := range reqs {
			req := req
			g.Go(func() error {
				return o.runOne(gctx, req, p)
			})
		}
		_ = g.Wait()
	}

	if block {
		run()
	} else {
		go run()
	}
	return p
}

func (o *Orchestrator) runOne(ctx context.Context, req Request, p *promise.Promise) error {
	d := o.drv
	if o.mode == ProcessMode {
		copied, err := o.drv.Copy()
		if err != nil {
			p.Fail(req.Key, err)
			return nil
		}
		defer copied.Close()
		d = copied
	}

	value, err := req.Read(ctx, d)
	if err != nil {
		p.Fail(req.Key, err)
		return nil
	}
	p.Fulfill(req.Key, value)
	return nil
}
