package actor

import (
	"log/slog"
	"sync"

	"slug/internal/klvm"
	"slug/internal/kvalue"
	"slug/internal/mailbox"
	"slug/internal/modreg"
	"slug/internal/stream"
)

// System is the per-process coordinator spec.md §9's "Global state" note
// calls for: one process-wide root *klvm.Env built once at startup and
// never mutated, one shared Executor, one module registry, and the set of
// live actors. internal/client's ActorSystem wraps this to expose the
// embedding API (spec.md §6); System itself is the mechanism, grounded on
// the teacher's kernel.Kernel (Actors map, NextActorID, RegisterActor) minus
// its capability-index bookkeeping, which has no counterpart in spec.md's
// Actor shape.
type System struct {
	rootEnv  *klvm.Env
	executor *Executor
	modules  *modreg.Registry
	logger   *slog.Logger
	budget   int

	mu     sync.Mutex
	actors map[string]*Actor
}

// NewSystem builds a System with workers-worth of executor concurrency,
// using klvm.DefaultBudget as every actor's per-turn instruction budget.
func NewSystem(workers int, logger *slog.Logger) *System {
	return NewSystemWithBudget(workers, logger, klvm.DefaultBudget)
}

// NewSystemWithBudget is NewSystem with an explicit per-turn instruction
// budget (internal/config's InstructionBudget, surfaced by cmd/torqd), so a
// host can trade turn latency for fairness without touching klvm itself.
func NewSystemWithBudget(workers int, logger *slog.Logger, budget int) *System {
	if logger == nil {
		logger = slog.Default()
	}
	if budget <= 0 {
		budget = klvm.DefaultBudget
	}
	return &System{
		rootEnv:  klvm.NewRootEnv(),
		executor: NewExecutor(workers),
		modules:  modreg.New(),
		logger:   logger,
		budget:   budget,
		actors:   make(map[string]*Actor),
	}
}

// Modules exposes the registry so internal/client's ActorSystem can
// implement addDefaultModules/addModule (spec.md §6).
func (s *System) Modules() *modreg.Registry { return s.modules }

// Shutdown stops the executor.
func (s *System) Shutdown() error { return s.executor.Shutdown() }

// Spawn creates a root-level actor (no parent) and sends it Configure —
// the entry point internal/client's ActorBuilder.Spawn drives (spec.md §6).
func (s *System) Spawn(address string, handlerCtor *kvalue.Proc, args []kvalue.Value) *Actor {
	a := s.register(address)
	s.deliverControl(a, configureMsg{handlerCtor: handlerCtor, args: args})
	return a
}

// spawnChild creates a child actor for the `spawn`/`act` intrinsics. It
// does not itself send Configure/Act — callers do that once they've built
// the right control message (spec.md §4.5).
func (s *System) spawnChild(parent *Actor) *Actor {
	child := s.register("")
	parent.mu.Lock()
	parent.childCount++
	parent.mu.Unlock()
	return child
}

func (s *System) register(address string) *Actor {
	a := newActor(s, address)
	s.mu.Lock()
	s.actors[a.Address] = a
	s.mu.Unlock()
	return a
}

// NewClientEndpoint registers a bare requester identity with no handler
// constructor ever configured — internal/client's RequestClient/StreamClient
// use it as the Sender/requester of a host-issued request so that the
// ordinary response-binding fixpoint (spec.md §4.4) can route the eventual
// reply back into a target Var the host is watching, without the host
// needing to be a KLVM-driven actor itself.
func (s *System) NewClientEndpoint() *Actor {
	return s.register("")
}

// Lookup returns the actor registered under address, if any — used by
// internal/client to resolve an address into a live *Actor.
func (s *System) Lookup(address string) (*Actor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actors[address]
	return a, ok
}

// Addresses lists every currently-registered actor address, for host
// introspection tooling (cmd/torqd's repl command).
func (s *System) Addresses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.actors))
	for addr := range s.actors {
		out = append(out, addr)
	}
	return out
}

// Send delivers a host-originated notify or request envelope to target,
// addressed as coming from sender (normally a *Actor returned by
// NewClientEndpoint). Exposed for internal/client's RequestClient/
// StreamClient, which are not themselves KLVM-driven actors.
func (s *System) Send(target *Actor, kind mailbox.Kind, sender *Actor, message kvalue.Value, requestID mailbox.RequestID) {
	s.deliverEnvelope(target, mailbox.Envelope{Kind: kind, Sender: sender, Message: message, RequestID: requestID})
}

func (s *System) deliverControl(a *Actor, msg any) {
	a.Deliver(mailbox.Envelope{Kind: mailbox.KindControl, Message: msg})
}

func (s *System) deliverEnvelope(a *Actor, e mailbox.Envelope) {
	a.Deliver(e)
}

// buildSystemModule returns the "system" module record special-cased by
// import(qualifier, selections) (spec.md §4.7). Its Stream.new/StreamIter
// fields are native procedures closing over asker, the actor on whose
// behalf the import was performed, since Stream.new must know who is
// sending the publisher request (spec.md §4.6). Grounded on the teacher's
// internal/object.Channel (capacity/closed bookkeeping) generalized to
// Vars, via internal/stream.
func (s *System) buildSystemModule(asker *Actor) *kvalue.Record {
	sys := kvalue.NewRecord("system")

	streamRec := kvalue.NewRecord("Stream")
	streamRec.Set(kvalue.AtomFeature("new"), &kvalue.Proc{
		Name:  "Stream.new",
		Arity: 2,
		Native: func(args []kvalue.Value) (kvalue.Value, error) {
			publisherVal := args[0]
			request := args[1]
			publisherNative, ok := publisherVal.(*kvalue.Native)
			if !ok || publisherNative.Kind != kvalue.NativeActorRef {
				return nil, &wrongArgError{"Stream.new expects an actor reference as publisher"}
			}
			publisher, _ := publisherNative.Payload.(*Actor)
			obj := stream.New(publisher, request)
			obj.Reissue = func(o *stream.Obj) {
				asker.issueStreamRequest(publisher, o)
			}
			asker.issueStreamRequest(publisher, obj)
			return kvalue.NewNative(kvalue.NativeStream, obj), nil
		},
	})
	sys.Set(kvalue.AtomFeature("Stream"), streamRec)

	iterRec := kvalue.NewRecord("StreamIter")
	iterRec.Set(kvalue.AtomFeature("new"), &kvalue.Proc{
		Name:  "StreamIter.new",
		Arity: 1,
		Native: func(args []kvalue.Value) (kvalue.Value, error) {
			native, ok := args[0].(*kvalue.Native)
			if !ok || native.Kind != kvalue.NativeStream {
				return nil, &wrongArgError{"StreamIter.new expects a stream"}
			}
			obj := native.Payload.(*stream.Obj)
			it := stream.NewIter(obj)
			// Each iterator instance is returned as its own record whose
			// "apply" closes over this specific *stream.Iter — spec.md
			// §4.6's StreamIter.apply(bindTarget) call is then an
			// ordinary SelectApply against this instance.
			instance := kvalue.NewRecord("StreamIter")
			instance.Set(kvalue.AtomFeature("apply"), &kvalue.Proc{
				Name:  "StreamIter.apply",
				Arity: 0,
				Native: func([]kvalue.Value) (kvalue.Value, error) {
					return it.Apply()
				},
			})
			return instance, nil
		},
	})
	sys.Set(kvalue.AtomFeature("StreamIter"), iterRec)

	return sys
}

type wrongArgError struct{ msg string }

func (e *wrongArgError) Error() string { return "E_INVALID_ARG: " + e.msg }
