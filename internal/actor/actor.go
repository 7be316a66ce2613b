// Package actor implements the actor lifecycle, dispatch loop, and
// spawn/act/respond intrinsics described in spec.md §3/§4.4-4.6. Grounded on
// the teacher's kernel.Kernel/kernel.Actor (RegisterActor/SpawnChild,
// runActor's per-actor goroutine loop, ActCtx's SendSync/SendFuture), but
// the per-actor "go k.runActor(act)" goroutine is replaced by a bounded
// worker-pool Executor (executor.go) — spec.md §5/§9 explicitly forbids one
// OS thread per actor.
package actor

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"slug/internal/klvm"
	"slug/internal/mailbox"
	"slug/internal/store"
)

// childVar records a child actor handle plus the opaque child-side Var
// identity used only as a SyncVar payload (spec.md §5 "Ownership" — a
// parent never holds a live reference into a child's environment, only
// this handle).
type childVar struct {
	child    *Actor
	childVar *store.Var
}

// activeRequest tracks who `respond` addresses and whether a response
// clears the slot (spec.md §4.5): a genuine request handler clears it
// (ask-handler semantics), a free procedure context (an `act` body) does
// not.
type activeRequest struct {
	requester      *Actor
	requestID      mailbox.RequestID
	clearOnRespond bool
}

// Actor holds everything spec.md §3 lists for "Actor": address, mailbox,
// executor, logger, KLVM instance, handler cell, active-request slot,
// wait-barrier slot, selectable/suspended-responses lists, child counter,
// triggers map, failed-value slot, and trace flag.
type Actor struct {
	Address string

	system   *System
	mailbox  *mailbox.Mailbox
	executor *Executor
	logger   *slog.Logger

	machine    *klvm.Machine
	handlerVar *store.Var

	// mu guards every field below, all of which are touched only during
	// this actor's own turn (spec.md §5 "all other actor state is private
	// to the owning actor and mutated only during its turn") except for
	// Deliver, which a peer actor's turn may call concurrently.
	mu sync.Mutex

	configured  bool
	active      *activeRequest
	waitBarrier *store.Var

	selectable []mailbox.Envelope
	suspended  []mailbox.Envelope

	childCount int
	triggers   map[*store.Var][]childVar

	failedValue *failedValueHolder
	trace       bool

	stopped bool

	// scheduled is a CAS guard ensuring at most one pending/running turn
	// per actor is ever queued on the executor at once (spec.md §5: "no
	// actor's KLVM ever runs on two threads simultaneously").
	scheduled int32
}

// failedValueHolder indirects *kvalue.FailedValue so actor.go need not
// import kvalue just to declare the field type here; host.go populates it.
type failedValueHolder struct {
	value any // *kvalue.FailedValue
}

func newActor(sys *System, address string) *Actor {
	if address == "" {
		address = uuid.NewString()
	}
	a := &Actor{
		Address:  address,
		system:   sys,
		mailbox:  mailbox.New(),
		executor: sys.executor,
		logger:   sys.logger.With("actor", address),
		triggers: make(map[*store.Var][]childVar),
	}
	a.handlerVar = store.NewVar("$handler")
	a.machine = klvm.NewMachine(sys.rootEnv, a)
	return a
}

// Deliver enqueues e and schedules a turn if the actor isn't already
// scheduled. Safe for concurrent callers (spec.md §5 "the mailbox is the
// only inter-actor shared object; all writes are atomic enqueues").
func (a *Actor) Deliver(e mailbox.Envelope) {
	a.mailbox.Insert(e)
	a.maybeSchedule()
}

func (a *Actor) maybeSchedule() {
	a.mu.Lock()
	executable := a.isExecutableLocked()
	a.mu.Unlock()
	if !executable {
		return
	}
	if atomic.CompareAndSwapInt32(&a.scheduled, 0, 1) {
		a.executor.Schedule(a)
	}
}

// isExecutableLocked implements spec.md §4.4's executability predicate.
// Caller must hold a.mu.
func (a *Actor) isExecutableLocked() bool {
	if a.stopped {
		return false
	}
	if a.waitBarrier == nil {
		return a.mailbox.Len() > 0
	}
	if head, ok := a.mailbox.PeekNext(); ok {
		if head.IsResponse() || head.IsControl() {
			return true
		}
	}
	return len(a.selectable) > 0
}
