package actor

import (
	"errors"
	"fmt"
	"sync/atomic"

	"slug/internal/klvm"
	"slug/internal/kvalue"
	"slug/internal/mailbox"
	"slug/internal/store"
	"slug/internal/stream"
)

// runTurn is one scheduling turn (spec.md §4.4 "Turn structure"): select the
// next batch off the mailbox, dispatch it by kind, then re-check whether
// another turn is already warranted before yielding the executor goroutine
// back to the pool.
func (a *Actor) runTurn() {
	a.mu.Lock()
	stopped := a.stopped
	a.mu.Unlock()
	if stopped {
		atomic.StoreInt32(&a.scheduled, 0)
		return
	}

	batch := a.mailbox.SelectBatch()
	switch {
	case len(batch) == 0:
		a.mu.Lock()
		hasSelectable := len(a.selectable) > 0
		a.mu.Unlock()
		if hasSelectable {
			a.runResponseFixpoint(nil)
		}
	case batch[0].Kind == mailbox.KindControl:
		a.handleControl(batch[0])
	case batch[0].Kind == mailbox.KindResponse:
		a.runResponseFixpoint(batch)
	default:
		a.handleMessage(batch[0])
	}

	atomic.StoreInt32(&a.scheduled, 0)
	a.maybeSchedule()
}

func (a *Actor) handleControl(e mailbox.Envelope) {
	switch msg := e.Message.(type) {
	case resumeMsg:
		a.mu.Lock()
		a.waitBarrier = nil
		a.mu.Unlock()
		a.runCompute()

	case configureMsg:
		a.handleConfigure(msg)

	case stopMsg:
		a.handleStop()

	case actMsg:
		a.handleAct(msg)

	case syncVarMsg:
		if err := store.Bind(msg.v, msg.value); err != nil {
			a.haltWithNative(err)
			return
		}
		a.mu.Lock()
		a.waitBarrier = nil
		a.mu.Unlock()
		a.runCompute()

	default:
		a.logger.Warn("unknown control message", "type", fmt.Sprintf("%T", msg))
	}
}

// handleConfigure installs the handler cell by applying handlerCtor to args
// and binding the last formal parameter — the handler value — directly into
// a.handlerVar (spec.md §4.4's "Configure(cfg) (first-time only)").
// Idempotent: a later duplicate Configure (which should never happen per
// spec, but costs nothing to guard) is a no-op.
func (a *Actor) handleConfigure(msg configureMsg) {
	a.mu.Lock()
	if a.configured {
		a.mu.Unlock()
		return
	}
	a.configured = true
	a.mu.Unlock()

	ctorVar := store.NewVar("$ctor")
	if err := store.Bind(ctorVar, msg.handlerCtor); err != nil {
		a.haltWithNative(err)
		return
	}

	bindings := []klvm.Binding{{Name: "$ctor", Var: ctorVar}}
	argRefs := make([]klvm.Ref, 0, len(msg.args)+1)
	for i, v := range msg.args {
		name := fmt.Sprintf("$arg%d", i)
		av := store.NewVar(name)
		if err := store.Bind(av, v); err != nil {
			a.haltWithNative(err)
			return
		}
		bindings = append(bindings, klvm.Binding{Name: name, Var: av})
		argRefs = append(argRefs, klvm.Ident(name))
	}
	bindings = append(bindings, klvm.Binding{Name: "$result", Var: a.handlerVar})
	argRefs = append(argRefs, klvm.Ident("$result"))

	env := a.system.rootEnv.ExtendMany(bindings)
	a.machine.Stack.Push(klvm.Frame{
		Inst: &klvm.Apply{Proc: klvm.Ident("$ctor"), Args: argRefs},
		Env:  env,
	})
	a.runCompute()
}

// handleStop is terminal: no further turns run after this. Any in-flight
// request is answered so its caller does not await forever (spec.md §4.4).
func (a *Actor) handleStop() {
	a.mu.Lock()
	a.stopped = true
	active := a.active
	a.active = nil
	a.mu.Unlock()

	if active == nil {
		return
	}
	a.system.deliverEnvelope(active.requester, mailbox.Envelope{
		Kind:      mailbox.KindResponse,
		Sender:    a,
		Message:   kvalue.Nothing,
		RequestID: active.requestID,
	})
}

// handleAct runs an `act` child's initial computation (spec.md §4.5): the
// active-request slot is set but, unlike a request handler, is not cleared
// on respond — a free procedure context may keep responding (though by
// convention an act body responds exactly once, with its final statement).
func (a *Actor) handleAct(msg actMsg) {
	a.mu.Lock()
	a.active = &activeRequest{requester: msg.replyTo, requestID: msg.requestID, clearOnRespond: false}
	a.mu.Unlock()

	a.machine.Stack.Push(klvm.Frame{Inst: msg.body, Env: msg.env})
	a.runCompute()
}

// handleMessage dispatches a notify or request (spec.md §4.4): builds an
// environment binding $next to the message and invokes $handler($next). A
// halted actor answers requests with its FailedValue and drops notifies
// instead of running the handler (spec.md §7 "Propagation policy").
func (a *Actor) handleMessage(e mailbox.Envelope) {
	a.mu.Lock()
	halted := a.failedValue
	handlerVar := a.handlerVar
	a.mu.Unlock()

	if halted != nil {
		if e.IsRequest() {
			a.respondHalted(e, halted.value)
		} else {
			a.logger.Info("dropping notify after halt")
		}
		return
	}

	msgVal, ok := e.Message.(kvalue.Value)
	if !ok {
		a.logger.Warn("envelope message is not a kernel value")
		return
	}
	nextVar := store.NewVar("$next")
	if err := store.Bind(nextVar, msgVal); err != nil {
		a.haltWithNative(err)
		return
	}

	if e.IsRequest() {
		requester, ok := e.Sender.(*Actor)
		if !ok {
			a.logger.Warn("request envelope missing a sender actor")
			return
		}
		a.mu.Lock()
		a.active = &activeRequest{requester: requester, requestID: e.RequestID, clearOnRespond: true}
		a.mu.Unlock()
	}

	env := a.system.rootEnv.ExtendMany([]klvm.Binding{
		{Name: "$next", Var: nextVar},
		{Name: "$handler", Var: handlerVar},
	})
	a.machine.Stack.Push(klvm.Frame{
		Inst: &klvm.Apply{Proc: klvm.Ident("$handler"), Args: []klvm.Ref{klvm.Ident("$next")}},
		Env:  env,
	})
	a.runCompute()
}

func (a *Actor) respondHalted(e mailbox.Envelope, failed any) {
	requester, ok := e.Sender.(*Actor)
	if !ok {
		return
	}
	a.system.deliverEnvelope(requester, mailbox.Envelope{
		Kind:      mailbox.KindResponse,
		Sender:    a,
		Message:   failed,
		RequestID: e.RequestID,
	})
}

// runCompute drives the KLVM until it yields, recording whatever state the
// yield implies (spec.md §4.2): Preempt self-sends Resume, Wait records the
// barrier and wakes the actor via a one-shot callback on it, Halt builds and
// propagates a FailedValue.
func (a *Actor) runCompute() {
	outcome := a.machine.Compute(a.system.budget)
	switch o := outcome.(type) {
	case klvm.Completed:
		a.mu.Lock()
		a.waitBarrier = nil
		a.mu.Unlock()

	case klvm.Preempt:
		a.mu.Lock()
		a.waitBarrier = nil
		a.mu.Unlock()
		a.system.deliverControl(a, resumeMsg{})

	case klvm.Wait:
		a.mu.Lock()
		a.waitBarrier = o.Barrier
		a.mu.Unlock()
		o.Barrier.AddCallback(func(*store.Var, any) {
			a.system.deliverControl(a, resumeMsg{})
		})

	case klvm.Halt:
		a.handleHalt(o)
	}
}

// handleHalt converts an uncaught Halt into the actor's FailedValue slot
// (spec.md §7 kinds 4/5/6) and, if a request was in flight, answers it with
// the FailedValue so the requester does not await forever. Halt monotonicity
// (spec.md §8) holds because this is the only writer of a.failedValue and it
// refuses to overwrite an existing one.
func (a *Actor) handleHalt(o klvm.Halt) {
	a.mu.Lock()
	if a.failedValue != nil {
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	var fv *kvalue.FailedValue
	switch {
	case o.TouchedFailed != nil:
		fv = o.TouchedFailed.Wrap(a.Address, klvm.RenderInst(o.Instruction))
	case o.ThrownValue != nil:
		fv = &kvalue.FailedValue{ActorAddress: a.Address, Err: o.ThrownValue, Current: klvm.RenderInst(o.Instruction)}
	default:
		errVal := kvalue.NewErrorRecord("NativeException", o.NativeCause)
		fv = &kvalue.FailedValue{ActorAddress: a.Address, Err: errVal, Current: klvm.RenderInst(o.Instruction), NativeCause: o.NativeCause}
	}

	a.mu.Lock()
	a.failedValue = &failedValueHolder{value: fv}
	active := a.active
	a.active = nil
	a.mu.Unlock()

	a.logger.Error("actor halted", "detail", fv.ToDetailsString())

	if active == nil {
		return
	}
	a.system.deliverEnvelope(active.requester, mailbox.Envelope{
		Kind:      mailbox.KindResponse,
		Sender:    a,
		Message:   fv,
		RequestID: active.requestID,
	})
}

// haltWithNative wraps a Go error encountered outside the KLVM's own step
// loop (e.g. a Configure-time bind failure) as a native-exception Halt, so
// it flows through the same handleHalt path as any other halt.
func (a *Actor) haltWithNative(err error) {
	a.handleHalt(klvm.Halt{NativeCause: err.Error()})
}

// runResponseFixpoint implements spec.md §4.4's response-binding fixpoint.
// batch is this turn's freshly dequeued contiguous run of responses (nil
// when this turn was woken purely by previously-selectable responses).
func (a *Actor) runResponseFixpoint(batch []mailbox.Envelope) {
	a.mu.Lock()
	all := make([]mailbox.Envelope, 0, len(batch)+len(a.selectable)+len(a.suspended))
	all = append(all, batch...)
	all = append(all, a.selectable...)
	all = append(all, a.suspended...)
	a.mu.Unlock()

	if len(all) == 0 {
		return
	}

	var waiting []mailbox.Envelope
	for _, e := range all {
		if err := a.bindResponseValue(e); err != nil {
			var w *store.Wait
			if errors.As(err, &w) {
				waiting = append(waiting, e)
				continue
			}
			a.haltWithNative(err)
			return
		}
	}

	a.mu.Lock()
	if len(waiting) == len(all) {
		a.suspended = waiting
		a.selectable = nil
		a.mu.Unlock()
		return
	}
	a.suspended = nil
	a.selectable = waiting
	a.mu.Unlock()

	a.runCompute()
}

// bindResponseValue implements the two request-id shapes of spec.md §4.4: a
// direct target Var (unary requests, including `act`'s respond(target)), or
// a stream.Ref (publisher responses feeding a StreamObj).
func (a *Actor) bindResponseValue(e mailbox.Envelope) error {
	if ref, ok := e.RequestID.(stream.Ref); ok {
		return a.bindStreamResponse(ref.Obj, e.Message)
	}
	targetVar, ok := e.RequestID.(*store.Var)
	if !ok {
		return fmt.Errorf("E_INVALID_ARG: response request-id is not a target var")
	}
	msgVal, ok := e.Message.(kvalue.Value)
	if !ok {
		return fmt.Errorf("E_INVALID_ARG: response message is not a kernel value")
	}
	return store.Bind(targetVar, msgVal)
}

// bindStreamResponse implements spec.md §4.4's stream-request-id cases:
// FailedValue taints the tail and moves past it, an empty record or empty
// tuple is a legal no-op, Eof terminates or (more=true) triggers a publisher
// re-issue, and any other value must be a tuple of elements to append.
func (a *Actor) bindStreamResponse(obj *stream.Obj, msgAny any) error {
	msgVal, ok := msgAny.(kvalue.Value)
	if !ok {
		return fmt.Errorf("E_INVALID_ARG: stream response message is not a kernel value")
	}

	if fv, ok := kvalue.IsFailedValue(msgVal); ok {
		if err := store.Bind(obj.Tail, fv); err != nil {
			return err
		}
		obj.Tail = store.NewVar("$streamTail")
		return nil
	}

	if rec, ok := msgVal.(*kvalue.Record); ok {
		if rec.Label == "Eof" {
			moreVV, ok := rec.Get(kvalue.AtomFeature("more"))
			if !ok {
				return fmt.Errorf("E_INVALID_ARG: Eof record missing 'more' field")
			}
			moreComplete, err := store.CheckComplete(moreVV)
			if err != nil {
				return err
			}
			more, ok := moreComplete.(kvalue.Bool)
			if !ok {
				return fmt.Errorf("E_INVALID_ARG: Eof 'more' field is not boolean")
			}
			if bool(more) {
				if obj.Reissue != nil {
					obj.Reissue(obj)
				}
				return nil
			}
			return obj.Terminate()
		}
		if rec.Arity() == 0 {
			return nil
		}
		return fmt.Errorf("E_INVALID_ARG: unexpected record %q as stream response", rec.Label)
	}

	tup, ok := msgVal.(*kvalue.Tuple)
	if !ok {
		return fmt.Errorf("E_INVALID_ARG: stream response must be a tuple, Eof, or empty record")
	}
	if tup.Arity() == 0 {
		return nil
	}
	for _, elem := range tup.Elements {
		v, ok := elem.(kvalue.Value)
		if !ok {
			return fmt.Errorf("E_INVALID_ARG: stream tuple element is not complete")
		}
		if err := obj.Append(v); err != nil {
			return err
		}
	}
	return nil
}
