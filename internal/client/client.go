// Package client implements the embedding API host programs use to build
// actor systems, spawn actors, and exchange messages with them (spec.md
// §6: ActorBuilder, RequestClient, StreamClient, ActorSystem). Grounded on
// the teacher's kernel.ActCtx.SendSync/SendFuture (a caller outside the
// actor's own goroutine sending a message and awaiting a reply) and
// internal/util/future.Future.AwaitTimeout's select-on-timer latch, adapted
// from the teacher's channel-backed Future to a *store.Var the response-
// binding fixpoint (internal/actor's dispatch loop) completes the ordinary
// way.
package client

import (
	"fmt"
	"time"

	"slug/internal/actor"
	"slug/internal/kvalue"
	"slug/internal/mailbox"
	"slug/internal/store"
	"slug/internal/stream"
	"slug/internal/util/future"
)

// ActorSystem wraps internal/actor.System with the module-registry setup
// step spec.md §6 names (addDefaultModules/addModule/build).
type ActorSystem struct {
	sys *actor.System
}

// NewActorSystem builds an ActorSystem with the given executor concurrency,
// using klvm's default per-turn instruction budget.
func NewActorSystem(workers int) *ActorSystem {
	return &ActorSystem{sys: actor.NewSystem(workers, nil)}
}

// NewActorSystemWithBudget is NewActorSystem with an explicit per-turn
// instruction budget, for embedding hosts that want the same knob
// cmd/torqd exposes via internal/config.
func NewActorSystemWithBudget(workers int, budget int) *ActorSystem {
	return &ActorSystem{sys: actor.NewSystemWithBudget(workers, nil, budget)}
}

// AddDefaultModules is a no-op placeholder: the only always-present module
// is "system" (spec.md §4.7), special-cased directly by internal/actor's
// (*Actor).Import rather than registered — there is nothing else to pre-seed by default.
func (s *ActorSystem) AddDefaultModules() *ActorSystem { return s }

// AddModule registers a host-built CompleteRec under qualifier (spec.md
// §4.7's moduleAt interface), for modules the embedding host constructs in
// Go rather than loading from a module source file (out of scope per
// spec.md §1's surface-syntax carve-out).
func (s *ActorSystem) AddModule(qualifier string, rec *kvalue.Record) *ActorSystem {
	s.sys.Modules().AddModule(qualifier, rec)
	return s
}

// Build finalizes configuration and returns the underlying system handle.
// Kept as a distinct step (rather than folding into NewActorSystem) to
// match spec.md §6's builder-style `.build()` call.
func (s *ActorSystem) Build() *actor.System { return s.sys }

// Shutdown stops the shared executor.
func (s *ActorSystem) Shutdown() error { return s.sys.Shutdown() }

// ActorBuilder constructs and spawns a root-level actor (spec.md §6).
type ActorBuilder struct {
	sys         *ActorSystem
	address     string
	handlerCtor *kvalue.Proc
	args        []kvalue.Value
}

// NewActorBuilder starts a builder bound to sys.
func NewActorBuilder(sys *ActorSystem) *ActorBuilder {
	return &ActorBuilder{sys: sys}
}

// SetAddress sets the actor's externally-visible address.
func (b *ActorBuilder) SetAddress(address string) *ActorBuilder {
	b.address = address
	return b
}

// SetSystem rebinds which ActorSystem this builder spawns into, matching
// spec.md §6's `.setSystem(sys)` step.
func (b *ActorBuilder) SetSystem(sys *ActorSystem) *ActorBuilder {
	b.sys = sys
	return b
}

// SetSource is spec.md §6's `.setSource(s)` step, which in the original
// system parses actor-handler source text into a handler constructor. This
// runtime's scope stops at the KLVM (spec.md §1 excludes the surface
// parser), so SetSource ignores its argument and records nothing;
// Spawn returns an unimplemented error unless SetHandlerCtor has also been
// called with a Go-built constructor (spec.md §9 Open Questions: documented
// in DESIGN.md alongside self()'s unimplemented status).
func (b *ActorBuilder) SetSource(source string) *ActorBuilder {
	return b
}

// SetHandlerCtor supplies the handler constructor directly as a *kvalue.Proc
// — the substitute this embedding layer offers in place of source parsing.
func (b *ActorBuilder) SetHandlerCtor(ctor *kvalue.Proc, args ...kvalue.Value) *ActorBuilder {
	b.handlerCtor = ctor
	b.args = args
	return b
}

// Spawn creates the actor and returns its reference (here, the *actor.Actor
// handle itself — this in-process runtime has no remote/serialized actor
// reference form, so the handle doubles as the "actor reference" spec.md
// §6 describes RequestClient/StreamClient operating against).
func (b *ActorBuilder) Spawn() (*actor.Actor, error) {
	if b.sys == nil {
		return nil, fmt.Errorf("E_INVALID_ARG: ActorBuilder has no system")
	}
	if b.handlerCtor == nil {
		return nil, fmt.Errorf("E_UNIMPLEMENTED: ActorBuilder.spawn requires SetHandlerCtor (source parsing is out of scope)")
	}
	return b.sys.sys.Spawn(b.address, b.handlerCtor, b.args), nil
}

// RequestClient implements spec.md §6's send/awaitResponse pair: a
// host-side goroutine that is not itself a KLVM-driven actor, addressing
// requests through a bare client endpoint so ordinary response-binding
// (internal/actor's dispatch loop) completes a *store.Var whose bind
// callback resolves a future.Future the client awaits with a timeout —
// the teacher's future.Future.AwaitTimeout latch, fed from a dataflow
// callback instead of future.New's goroutine.
type RequestClient struct {
	sys      *actor.System
	endpoint *actor.Actor
}

// NewRequestClient creates a RequestClient bound to sys.
func NewRequestClient(sys *actor.System) *RequestClient {
	return &RequestClient{sys: sys, endpoint: sys.NewClientEndpoint()}
}

// pending is one in-flight request's completion latch.
type pending struct {
	target *store.Var
	future *future.Future[kvalue.Value]
}

// Send dispatches message to target as a request and returns a latch whose
// Await/AwaitTimeout yields the eventual response (which may itself be a
// *kvalue.FailedValue per spec.md §6's "FailedValue external shape").
func (c *RequestClient) Send(target *actor.Actor, message kvalue.Value) *pending {
	targetVar := store.NewVar("$clientRequest")
	fut, complete := future.NewPromise[kvalue.Value]()
	targetVar.AddCallback(func(_ *store.Var, value any) {
		if v, ok := value.(kvalue.Value); ok {
			complete(v, nil)
		} else {
			complete(kvalue.Nothing, nil)
		}
	})
	c.sys.Send(target, mailbox.KindRequest, c.endpoint, message, targetVar)
	return &pending{target: targetVar, future: fut}
}

// AwaitResponse blocks until the response arrives or timeout elapses.
// Returns (value, ok) with ok=false on timeout, matching spec.md §6's
// `.awaitResponse(timeout, unit)`.
func (p *pending) AwaitResponse(timeout time.Duration) (kvalue.Value, bool) {
	v, _, ok := p.future.AwaitTimeout(timeout)
	return v, ok
}

// SendAndAwaitResponse fuses Send and AwaitResponse (spec.md §6's
// `.sendAndAwaitResponse(...)`).
func (c *RequestClient) SendAndAwaitResponse(target *actor.Actor, message kvalue.Value, timeout time.Duration) (kvalue.Value, bool) {
	return c.Send(target, message).AwaitResponse(timeout)
}

// StreamClient implements spec.md §6's stream-consuming half: `.send`
// issues a request the way RequestClient does, but `.awaitEof` collects
// every tuple-shaped reply until the publisher answers Eof#{more: false},
// matching the StreamObj/StreamIter wire contract in spec.md §4.6 from the
// consumer's side rather than the producer's.
type StreamClient struct {
	sys      *actor.System
	address  string
	endpoint *actor.Actor
}

// NewStreamClient creates a StreamClient bound to sys.
func NewStreamClient(sys *actor.System) *StreamClient {
	return &StreamClient{sys: sys, endpoint: sys.NewClientEndpoint()}
}

// SetAddress records the externally-visible address used for diagnostics;
// the in-process runtime routes purely by *actor.Actor handle, so this is
// bookkeeping only (spec.md §6's `.setAddress(a)`).
func (c *StreamClient) SetAddress(address string) *StreamClient {
	c.address = address
	return c
}

// Send issues message to target as a stream request, building the same
// *stream.Obj the "system" module's Stream.new native builds for kernel
// code (spec.md §4.6), addressed with a stream.Ref so the client endpoint's
// ordinary dispatch loop (internal/actor's bindStreamResponse) appends
// arriving tuples and re-issues the request on Eof#{more: true} exactly the
// way an in-process consumer actor would.
func (c *StreamClient) Send(target *actor.Actor, message kvalue.Value) *streamPending {
	obj := stream.New(target, message)
	obj.Reissue = func(o *stream.Obj) {
		c.sys.Send(target, mailbox.KindRequest, c.endpoint, message, stream.Ref{Obj: o})
	}
	c.sys.Send(target, mailbox.KindRequest, c.endpoint, message, stream.Ref{Obj: obj})
	return &streamPending{iter: stream.NewIter(obj)}
}

type streamPending struct {
	iter *stream.Iter
}

// AwaitEof blocks, pulling one element at a time via StreamIter.apply's
// wait-barrier contract, until eof or timeout elapses; it returns every
// element seen, Eof excluded, and whether the stream actually completed.
func (p *streamPending) AwaitEof(timeout time.Duration) ([]kvalue.Value, bool) {
	deadline := time.Now().Add(timeout)
	var out []kvalue.Value
	for {
		v, err := p.iter.Apply()
		if err == nil {
			if v == kvalue.Eof {
				return out, true
			}
			out = append(out, v)
			continue
		}
		var wait *kvalue.ErrNativeWait
		if !asErrNativeWait(err, &wait) {
			return out, false
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return out, false
		}
		if !awaitBarrier(wait.Barrier, remaining) {
			return out, false
		}
	}
}

func asErrNativeWait(err error, out **kvalue.ErrNativeWait) bool {
	w, ok := err.(*kvalue.ErrNativeWait)
	if ok {
		*out = w
	}
	return ok
}

// awaitBarrier blocks until barrier (a *store.Var) binds or timeout elapses.
func awaitBarrier(barrier any, timeout time.Duration) bool {
	v, ok := barrier.(*store.Var)
	if !ok {
		return false
	}
	done := make(chan struct{}, 1)
	v.AddCallback(func(*store.Var, any) {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
