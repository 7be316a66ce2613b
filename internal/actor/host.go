package actor

import (
	"fmt"

	"slug/internal/klvm"
	"slug/internal/kvalue"
	"slug/internal/mailbox"
	"slug/internal/modreg"
	"slug/internal/store"
	"slug/internal/stream"
)

// Spawn implements the `spawn(cfg, target)` intrinsic (spec.md §4.5). By
// the time this is called, klvm's SpawnInst has already checkComplete'd cfg
// (recursively, including the handler constructor's captured environment),
// so spawn is invoked at most once per logical spawn — idempotence up to
// child creation falls out for free, rather than needing to be enforced
// here, since an incomplete cfg never reaches this method at all.
func (a *Actor) Spawn(cfgAny any, target *store.Var) error {
	cfg, ok := cfgAny.(*kvalue.Record)
	if !ok || (cfg.Label != "ActorCfg" && cfg.Label != "NativeActorCfg") {
		return fmt.Errorf("E_INVALID_ARG: spawn expects an ActorCfg record")
	}
	ctorVV, ok := cfg.Get(kvalue.AtomFeature("handlerCtor"))
	if !ok {
		return fmt.Errorf("E_INVALID_ARG: ActorCfg missing handlerCtor")
	}
	ctor, ok := ctorVV.(*kvalue.Proc)
	if !ok {
		return fmt.Errorf("E_INVALID_ARG: handlerCtor is not a procedure")
	}
	var args []kvalue.Value
	if argsVV, ok := cfg.Get(kvalue.AtomFeature("args")); ok {
		args = flattenArgs(argsVV)
	}

	child := a.system.spawnChild(a)
	ref := kvalue.NewNative(kvalue.NativeActorRef, child)
	if err := store.Bind(target, ref); err != nil {
		return err
	}
	a.system.deliverControl(child, configureMsg{handlerCtor: ctor, args: args})
	return nil
}

func flattenArgs(vv kvalue.ValueOrVar) []kvalue.Value {
	switch v := vv.(type) {
	case *kvalue.Tuple:
		out := make([]kvalue.Value, 0, len(v.Elements))
		for _, e := range v.Elements {
			if val, ok := e.(kvalue.Value); ok {
				out = append(out, val)
			}
		}
		return out
	case *kvalue.Record:
		out := make([]kvalue.Value, 0, len(v.Order))
		for _, f := range v.Order {
			if val, ok := v.Fields[f].(kvalue.Value); ok {
				out = append(out, val)
			}
		}
		return out
	default:
		return nil
	}
}

// Act implements the `act(seq, target)` intrinsic (spec.md §4.5): every
// binding visible in bodyEnv outside the root environment, except target,
// is captured into a brand-new child actor's environment (the capture is not
// narrowed to the identifiers body actually uses) — a Complete parent Var is copied in
// pre-bound, an unbound one is mirrored by a fresh child-side Var wired to
// a trigger. The child is sent an Act control whose requestID is target
// itself, so the body's own respond(...) calls bind target directly
// through the ordinary response-binding path (spec.md §4.4's
// bindResponseValue, unary shape) without any special-cased return value.
func (a *Actor) Act(body klvm.Inst, bodyEnv *klvm.Env, target *store.Var) error {
	free := bodyEnv.FreeVars("")
	child := a.system.spawnChild(a)

	bindings := make([]klvm.Binding, 0, len(free))
	for _, fb := range free {
		if fb.Var == target {
			continue
		}
		childSideVar := store.NewVar(fb.Name)
		resolved := store.ResolveValueOrVar(fb.Var)
		if rep, ok := resolved.(*store.Var); ok {
			a.registerTrigger(rep, child, childSideVar)
		} else if err := store.Bind(childSideVar, resolved); err != nil {
			return err
		}
		bindings = append(bindings, klvm.Binding{Name: fb.Name, Var: childSideVar})
	}

	childEnv := a.system.rootEnv.ExtendMany(bindings)
	a.system.deliverControl(child, actMsg{body: body, env: childEnv, replyTo: a, requestID: target})
	return nil
}

// registerTrigger installs a one-shot bind-callback on the parent's
// representative Var that forwards the eventual value to the child as a
// SyncVar control (spec.md §4.5/§9's Trigger). The callback fires exactly
// once (store.Var.AddCallback's contract), which already satisfies
// spec.md's "if the parent Var binds to a partial value, the callback
// recursively installs itself on the next unbound sub-Var": in this
// single-process runtime a partial value's nested Vars are the very same
// *store.Var objects on both sides of the actor boundary, so their later
// completion is visible to the child without any further propagation step.
func (a *Actor) registerTrigger(parentRep *store.Var, child *Actor, childSideVar *store.Var) {
	a.mu.Lock()
	a.triggers[parentRep] = append(a.triggers[parentRep], childVar{child: child, childVar: childSideVar})
	a.mu.Unlock()
	parentRep.AddCallback(func(_ *store.Var, value any) {
		a.system.deliverControl(child, syncVarMsg{v: childSideVar, value: value})
	})
}

// Self is left unimplemented: the source this runtime is grounded on never
// defines performCallbackToSelf's semantics, so self() surfaces as a
// catchable native exception rather than a guess (spec.md §9 Open
// Questions).
func (a *Actor) Self(target *store.Var) error {
	return fmt.Errorf("E_UNIMPLEMENTED: self() is not implemented")
}

// Respond implements `respond(value)` (spec.md §4.5): wraps an
// already-FailedValue in a new chain link carrying this actor's address
// and current instruction, then addresses the response to the active
// request's requester with the same request-id. A request handler's
// active-request slot clears on respond; a free-procedure context (e.g. an
// `act` body) does not, matching the distinction spec.md draws.
func (a *Actor) Respond(valueAny any, current string) error {
	val, ok := valueAny.(kvalue.Value)
	if !ok {
		return fmt.Errorf("E_INVALID_ARG: respond expects a complete value")
	}
	if fv, ok := kvalue.IsFailedValue(val); ok {
		val = fv.Wrap(a.Address, current)
	}

	a.mu.Lock()
	req := a.active
	a.mu.Unlock()
	if req == nil {
		a.logger.Warn("respond called with no active request")
		return nil
	}

	a.system.deliverEnvelope(req.requester, mailbox.Envelope{
		Kind:      mailbox.KindResponse,
		Sender:    a,
		Message:   val,
		RequestID: req.requestID,
	})

	if req.clearOnRespond {
		a.mu.Lock()
		a.active = nil
		a.mu.Unlock()
	}
	return nil
}

// issueStreamRequest sends obj.Request to publisher, addressed with a
// stream.Ref request-id so the response-binding fixpoint routes publisher's
// eventual reply back into obj rather than a plain target Var (spec.md
// §4.4/§4.6). Called once by Stream.new and again by Reissue every time the
// publisher answers Eof#{more: true}.
func (a *Actor) issueStreamRequest(publisher *Actor, obj *stream.Obj) {
	a.system.deliverEnvelope(publisher, mailbox.Envelope{
		Kind:      mailbox.KindRequest,
		Sender:    a,
		Message:   obj.Request,
		RequestID: stream.Ref{Obj: obj},
	})
}

// Import implements `import(qualifier, selections)` (spec.md §4.7). The
// "system" qualifier is special-cased here rather than in modreg, since its
// Stream.new/StreamIter.apply natives must close over this actor to know
// who is asking (the publisher request's sender).
func (a *Actor) Import(qualifier string, _ []string) (*kvalue.Record, error) {
	if qualifier == modreg.SystemQualifier {
		return a.system.buildSystemModule(a), nil
	}
	return a.system.modules.ModuleAt(qualifier)
}
