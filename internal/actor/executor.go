package actor

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Executor is the shared, bounded worker pool every actor's turns run on
// (spec.md §5/§9: "do not use OS threads per actor"). It replaces the
// teacher's kernel.Kernel.RegisterActor/SpawnChild pattern of spawning one
// goroutine per actor for its entire lifetime (`go k.runActor(act)`) with a
// fixed number of worker goroutines pulling ready actors off a queue —
// the errgroup.Group gives the pool a coordinated, error-propagating
// shutdown the teacher's bare goroutines never had.
type Executor struct {
	tasks  chan *Actor
	group  *errgroup.Group
	cancel context.CancelFunc
}

// NewExecutor starts workers goroutines, each looping: pull an actor,
// run one turn, repeat until Shutdown.
func NewExecutor(workers int) *Executor {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	ex := &Executor{tasks: make(chan *Actor, 4096), group: group, cancel: cancel}
	for i := 0; i < workers; i++ {
		group.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case a := <-ex.tasks:
					a.runTurn()
				}
			}
		})
	}
	return ex
}

// Schedule enqueues a for its next turn. Never blocks the caller for long:
// the channel is generously buffered, and on the rare case it's full the
// send moves to its own goroutine rather than stalling the scheduling
// actor's own turn.
func (ex *Executor) Schedule(a *Actor) {
	select {
	case ex.tasks <- a:
	default:
		go func() { ex.tasks <- a }()
	}
}

// Shutdown stops accepting new turns and waits for in-flight workers to
// exit.
func (ex *Executor) Shutdown() error {
	ex.cancel()
	return ex.group.Wait()
}
