package klvm

import (
	"errors"
	"fmt"

	"slug/internal/kvalue"
	"slug/internal/store"
)

func init() {
	store.EnvChecker = func(envAny any) error {
		env, ok := envAny.(*Env)
		if !ok || env == nil {
			return nil
		}
		for cur := env; cur != nil && !cur.isRoot; cur = cur.parent {
			for _, name := range cur.names {
				if _, err := store.CheckComplete(cur.vars[name]); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

// StepOutcome is the result/signal enum compute(budget) returns (spec.md
// §4.2, §9 "exception-based control flow → result/signal enum").
type StepOutcome interface{ isStepOutcome() }

type Completed struct{}
type Preempt struct{}

// Wait carries the unbound barrier Var, per spec.md §4.2.
type Wait struct{ Barrier *store.Var }

// Halt is unrecoverable: either a FailedValue was touched (remote halt
// imported into local computation) or an uncaught throw (spec.md §4.2).
type Halt struct {
	Instruction   Inst
	ThrownValue   kvalue.Value      // set for an uncaught throw
	NativeCause   string            // set for a host-level native exception
	TouchedFailed *kvalue.FailedValue // set when a touched FailedValue propagated
}

func (Completed) isStepOutcome() {}
func (Preempt) isStepOutcome()   {}
func (Wait) isStepOutcome()      {}
func (Halt) isStepOutcome()      {}

// Host is implemented by the actor package so the KLVM can perform the
// actor-level intrinsics (act/import/respond/self/spawn) without an import
// cycle between klvm and actor.
type Host interface {
	Spawn(cfg any, target *store.Var) error
	Act(body Inst, bodyEnv *Env, target *store.Var) error
	Self(target *store.Var) error
	Respond(value any, current string) error
	Import(qualifier string, selections []string) (*kvalue.Record, error)
}

// Machine holds one actor's KLVM instance: its machine stack and the
// process-wide root environment it was built from.
type Machine struct {
	Stack Stack
	Root  *Env
	Host  Host
}

func NewMachine(root *Env, host Host) *Machine {
	return &Machine{Root: root, Host: host}
}

const DefaultBudget = 10000

// Compute runs until the budget is exhausted, the stack empties, the
// machine suspends on an unbound Var, or the computation halts (spec.md
// §4.2).
func (m *Machine) Compute(budget int) StepOutcome {
	if budget <= 0 {
		budget = DefaultBudget
	}
	for budget > 0 {
		if m.Stack.Empty() {
			return Completed{}
		}
		outcome := m.step()
		if outcome != nil {
			return outcome
		}
		budget--
	}
	return Preempt{}
}

// step executes the top frame. It returns nil to keep looping, or a
// terminal StepOutcome. Per spec.md §4.2, any resolve step that hits an
// unbound Var must leave the current frame's effects undone — every case
// below only mutates the stack (pop/push) after all of its resolves
// succeed, so returning Wait before any mutation satisfies that contract.
func (m *Machine) step() StepOutcome {
	frame, ok := m.Stack.Peek()
	if !ok {
		return Completed{}
	}

	switch inst := frame.Inst.(type) {

	case *DeclareVar:
		v := store.NewVar(inst.Name)
		childEnv := frame.Env.Extend(inst.Name, v)
		m.Stack.Pop()
		m.Stack.Push(Frame{Inst: inst.Body, Env: childEnv})
		return nil

	case *Bind:
		value, err := m.resolveRaw(frame.Env, inst.Value)
		if err != nil {
			return m.raise(inst, err)
		}
		targetVar, err := m.resolveVar(frame.Env, inst.Target)
		if err != nil {
			return m.raise(inst, err)
		}
		if err := store.Bind(targetVar, value); err != nil {
			return m.raise(inst, err)
		}
		m.Stack.Pop()
		return nil

	case *Arith:
		a, err := m.resolveComplete(frame.Env, inst.A)
		if err != nil {
			return m.raise(inst, err)
		}
		b, err := m.resolveComplete(frame.Env, inst.B)
		if err != nil {
			return m.raise(inst, err)
		}
		result, err := arith(inst.Op, a, b)
		if err != nil {
			return m.raise(inst, err)
		}
		targetVar, err := m.resolveVar(frame.Env, inst.Target)
		if err != nil {
			return m.raise(inst, err)
		}
		if err := store.Bind(targetVar, result); err != nil {
			return m.raise(inst, err)
		}
		m.Stack.Pop()
		return nil

	case *Cmp:
		a, err := m.resolveComplete(frame.Env, inst.A)
		if err != nil {
			return m.raise(inst, err)
		}
		b, err := m.resolveComplete(frame.Env, inst.B)
		if err != nil {
			return m.raise(inst, err)
		}
		result, err := compare(inst.Op, a, b)
		if err != nil {
			return m.raise(inst, err)
		}
		targetVar, err := m.resolveVar(frame.Env, inst.Target)
		if err != nil {
			return m.raise(inst, err)
		}
		if err := store.Bind(targetVar, kvalue.Bool(result)); err != nil {
			return m.raise(inst, err)
		}
		m.Stack.Pop()
		return nil

	case *CreateRec:
		rec := kvalue.NewRecord(inst.Label)
		for _, fi := range inst.Fields {
			v, err := m.resolveRaw(frame.Env, fi.Value)
			if err != nil {
				return m.raise(inst, err)
			}
			rec.Set(fi.Feature, v.(kvalue.ValueOrVar))
		}
		targetVar, err := m.resolveVar(frame.Env, inst.Target)
		if err != nil {
			return m.raise(inst, err)
		}
		if err := store.Bind(targetVar, rec); err != nil {
			return m.raise(inst, err)
		}
		m.Stack.Pop()
		return nil

	case *CreateTuple:
		elems := make([]kvalue.ValueOrVar, len(inst.Elements))
		for i, e := range inst.Elements {
			v, err := m.resolveRaw(frame.Env, e)
			if err != nil {
				return m.raise(inst, err)
			}
			elems[i] = v.(kvalue.ValueOrVar)
		}
		tuple := kvalue.NewTuple(inst.Label, elems...)
		targetVar, err := m.resolveVar(frame.Env, inst.Target)
		if err != nil {
			return m.raise(inst, err)
		}
		if err := store.Bind(targetVar, tuple); err != nil {
			return m.raise(inst, err)
		}
		m.Stack.Pop()
		return nil

	case *Select:
		field, err := m.resolveField(frame.Env, inst.Rec, inst.Feature)
		if err != nil {
			return m.raise(inst, err)
		}
		targetVar, err := m.resolveVar(frame.Env, inst.Target)
		if err != nil {
			return m.raise(inst, err)
		}
		if err := store.Bind(targetVar, field); err != nil {
			return m.raise(inst, err)
		}
		m.Stack.Pop()
		return nil

	case *SelectApply:
		field, err := m.resolveField(frame.Env, inst.Rec, inst.Feature)
		if err != nil {
			return m.raise(inst, err)
		}
		proc, ok := store.ResolveValueOrVar(field).(*kvalue.Proc)
		if !ok {
			return m.raise(inst, fmt.Errorf("E_INVALID_ARG: selected feature is not a procedure"))
		}
		if err := m.applyProc(inst.Target, proc, inst.Args, frame.Env, inst); err != nil {
			return m.raise(inst, err)
		}
		return nil

	case *CreateProc:
		freeBindings := make([]Binding, 0, len(inst.Def.FreeNames))
		for _, name := range inst.Def.FreeNames {
			v, ok := frame.Env.Lookup(name)
			if !ok {
				return m.raise(inst, fmt.Errorf("E_UNBOUND: free variable %q not in scope", name))
			}
			freeBindings = append(freeBindings, Binding{Name: name, Var: v})
		}
		capturedEnv := frame.Env.root().ExtendMany(freeBindings)
		proc := &kvalue.Proc{Name: inst.Def.Name, Def: inst.Def, Env: capturedEnv, Arity: len(inst.Def.Params)}
		targetVar, err := m.resolveVar(frame.Env, inst.Target)
		if err != nil {
			return m.raise(inst, err)
		}
		if err := store.Bind(targetVar, proc); err != nil {
			return m.raise(inst, err)
		}
		m.Stack.Pop()
		return nil

	case *Apply:
		procVal, err := m.resolveComplete(frame.Env, inst.Proc)
		if err != nil {
			return m.raise(inst, err)
		}
		proc, ok := procVal.(*kvalue.Proc)
		if !ok {
			return m.raise(inst, fmt.Errorf("E_INVALID_ARG: apply target is not a procedure"))
		}
		if err := m.applyProcTail(proc, inst.Args, frame.Env, inst); err != nil {
			return m.raise(inst, err)
		}
		return nil

	case *If:
		cond, err := m.resolveComplete(frame.Env, inst.Cond)
		if err != nil {
			return m.raise(inst, err)
		}
		b, ok := cond.(kvalue.Bool)
		if !ok {
			return m.raise(inst, fmt.Errorf("E_INVALID_ARG: if condition is not boolean"))
		}
		m.Stack.Pop()
		if bool(b) {
			m.Stack.Push(Frame{Inst: inst.Then, Env: frame.Env})
		} else if inst.Else != nil {
			m.Stack.Push(Frame{Inst: inst.Else, Env: frame.Env})
		}
		return nil

	case *Case:
		val, err := m.resolveComplete(frame.Env, inst.Value)
		if err != nil {
			return m.raise(inst, err)
		}
		m.Stack.Pop()
		clause, bindings, matched := matchCase(inst.Clauses, val)
		if matched {
			env := frame.Env
			if len(bindings) > 0 {
				env = env.ExtendMany(bindings)
			}
			m.Stack.Push(Frame{Inst: clause.Then, Env: env})
		} else if inst.Else != nil {
			m.Stack.Push(Frame{Inst: inst.Else, Env: frame.Env})
		}
		return nil

	case *Seq:
		m.Stack.Pop()
		frames := make([]Frame, len(inst.Stmts))
		for i, s := range inst.Stmts {
			frames[i] = Frame{Inst: s, Env: frame.Env}
		}
		m.Stack.PushAll(frames)
		return nil

	case *Throw:
		val, err := m.resolveComplete(frame.Env, inst.Value)
		if err != nil {
			return m.raise(inst, err)
		}
		m.Stack.Pop()
		return m.unwindToCatch(val, inst)

	case *TryCatch:
		m.Stack.Pop()
		m.Stack.Push(Frame{Inst: &catchGuard{Param: inst.Param, Handler: inst.Handler}, Env: frame.Env})
		m.Stack.Push(Frame{Inst: inst.Body, Env: frame.Env})
		return nil

	case *catchGuard:
		// Body completed without throwing; the guard is a no-op once
		// reached normally.
		m.Stack.Pop()
		return nil

	case *ActInst:
		targetVar, err := m.resolveVar(frame.Env, inst.Target)
		if err != nil {
			return m.raise(inst, err)
		}
		if err := m.Host.Act(inst.Body, frame.Env, targetVar); err != nil {
			return m.raise(inst, err)
		}
		m.Stack.Pop()
		return nil

	case *SpawnInst:
		cfgVal, err := m.resolveComplete(frame.Env, inst.Cfg)
		if err != nil {
			return m.raise(inst, err)
		}
		targetVar, err := m.resolveVar(frame.Env, inst.Target)
		if err != nil {
			return m.raise(inst, err)
		}
		if err := m.Host.Spawn(cfgVal, targetVar); err != nil {
			return m.raise(inst, err)
		}
		m.Stack.Pop()
		return nil

	case *SelfInst:
		targetVar, err := m.resolveVar(frame.Env, inst.Target)
		if err != nil {
			return m.raise(inst, err)
		}
		if err := m.Host.Self(targetVar); err != nil {
			return m.raise(inst, err)
		}
		m.Stack.Pop()
		return nil

	case *RespondInst:
		val, err := m.resolveComplete(frame.Env, inst.Value)
		if err != nil {
			return m.raise(inst, err)
		}
		if err := m.Host.Respond(val, RenderInst(inst)); err != nil {
			return m.raise(inst, err)
		}
		m.Stack.Pop()
		return nil

	case *ImportInst:
		rec, err := m.Host.Import(inst.Qualifier, inst.Selections)
		if err != nil {
			return m.raise(inst, err)
		}
		m.Stack.Pop()
		// Bind each selection into a fresh child environment for whatever
		// remains on the stack — import has no Body of its own; it is
		// always sequenced inside a Seq, so its bindings must be visible
		// to subsequent sibling frames. We achieve this by rewriting the
		// *next* frame's Env, which is sound because Seq pushes sibling
		// frames sharing the same Env object.
		bindings := make([]Binding, 0, len(inst.Selections))
		for _, name := range inst.Selections {
			fv, ok := rec.Get(kvalue.AtomFeature(name))
			if !ok {
				return m.raise(inst, fmt.Errorf("E_NOT_FOUND: import selection %q not found", name))
			}
			v := store.NewVar(name)
			if err := store.Bind(v, fv); err != nil {
				return m.raise(inst, err)
			}
			bindings = append(bindings, Binding{Name: name, Var: v})
		}
		m.rewriteRemainingEnv(frame.Env.ExtendMany(bindings))
		return nil

	default:
		return Halt{Instruction: inst, NativeCause: "unknown instruction"}
	}
}

// catchGuard is an internal marker frame pushed by TryCatch; it is not a
// lowering-visible instruction.
type catchGuard struct {
	base
	Param   string
	Handler Inst
}

// rewriteRemainingEnv replaces the Env of every remaining frame that shared
// the old import-site Env, so an `import` statement's bindings are visible
// to the statements sequenced after it without requiring the lowering pass
// to nest every subsequent statement inside an explicit scope the way
// DeclareVar does.
func (m *Machine) rewriteRemainingEnv(newEnv *Env) {
	oldEnv := m.Stack.top
	if oldEnv == nil {
		return
	}
	target := oldEnv.frame.Env
	for n := m.Stack.top; n != nil && n.frame.Env == target; n = n.next {
		n.frame.Env = newEnv
	}
}

func (m *Machine) unwindToCatch(thrown kvalue.Value, site Inst) StepOutcome {
	for {
		fr, ok := m.Stack.Pop()
		if !ok {
			return Halt{Instruction: site, ThrownValue: thrown}
		}
		guard, ok := fr.Inst.(*catchGuard)
		if !ok {
			continue
		}
		paramVar := store.NewVar(guard.Param)
		if err := store.Bind(paramVar, thrown); err != nil {
			return Halt{Instruction: site, ThrownValue: thrown}
		}
		childEnv := fr.Env.Extend(guard.Param, paramVar)
		m.Stack.Push(Frame{Inst: guard.Handler, Env: childEnv})
		return nil
	}
}

// applyProc implements the method-call shorthand (SelectApply): Args are
// bound to every formal parameter except the last, and the last formal
// parameter — the result — is bound directly to the caller-supplied
// targetRef Var, per spec.md §4.5's "target" convention.
func (m *Machine) applyProc(targetRef Ref, proc *kvalue.Proc, args []Ref, env *Env, site Inst) error {
	targetVar, err := m.resolveVar(env, targetRef)
	if err != nil {
		return err
	}
	if proc.Native != nil {
		return m.applyNative(proc, args, targetVar, env)
	}
	def := proc.Def.(*ProcDef)
	if len(def.Params) != len(args)+1 {
		return fmt.Errorf("E_ARITY: expected %d args, got %d", len(def.Params)-1, len(args))
	}
	argBindings, err := m.bindArgsToParams(args, def.Params[:len(args)], env)
	if err != nil {
		return err
	}
	bindings := append(argBindings, Binding{Name: def.Params[len(def.Params)-1], Var: targetVar})
	callEnv := proc.Env.(*Env).ExtendMany(bindings)
	m.Stack.Pop()
	m.Stack.Push(Frame{Inst: def.Body, Env: callEnv})
	return nil
}

// applyProcTail handles the plain `apply` instruction, where the last
// argument in Args (if any) conventionally carries the result Var already,
// per spec.md §4.5's "target" convention — callers that want a result pass
// it as the final argument rather than through Apply's own (nonexistent)
// target field.
func (m *Machine) applyProcTail(proc *kvalue.Proc, args []Ref, env *Env, site Inst) error {
	if proc.Native != nil {
		if len(args) == 0 {
			return fmt.Errorf("E_ARITY: native procedure %q expects a target argument", proc.Name)
		}
		targetVar, err := m.resolveVar(env, args[len(args)-1])
		if err != nil {
			return err
		}
		return m.applyNative(proc, args[:len(args)-1], targetVar, env)
	}
	def := proc.Def.(*ProcDef)
	if len(def.Params) != len(args) {
		return fmt.Errorf("E_ARITY: expected %d args, got %d", len(def.Params), len(args))
	}
	bindings, err := m.bindArgsToParams(args, def.Params, env)
	if err != nil {
		return err
	}
	callEnv := proc.Env.(*Env).ExtendMany(bindings)
	m.Stack.Pop()
	m.Stack.Push(Frame{Inst: def.Body, Env: callEnv})
	return nil
}

// applyNative resolves args to Complete values, invokes proc.Native, and
// binds its result into targetVar — the host-procedure counterpart of
// applyProc/applyProcTail's kernel-body call path (spec.md §4.7's "system"
// module intrinsics, e.g. Stream.new / StreamIter.apply).
func (m *Machine) applyNative(proc *kvalue.Proc, argRefs []Ref, targetVar *store.Var, env *Env) error {
	if len(argRefs) != proc.Arity {
		return fmt.Errorf("E_ARITY: native procedure %q expects %d args, got %d", proc.Name, proc.Arity, len(argRefs))
	}
	args := make([]kvalue.Value, len(argRefs))
	for i, ref := range argRefs {
		v, err := m.resolveComplete(env, ref)
		if err != nil {
			return err
		}
		args[i] = v
	}
	result, err := proc.Native(args)
	if err != nil {
		var nw *kvalue.ErrNativeWait
		if errors.As(err, &nw) {
			barrier, _ := nw.Barrier.(*store.Var)
			return &store.Wait{Barrier: barrier}
		}
		return err
	}
	if err := store.Bind(targetVar, result); err != nil {
		return err
	}
	m.Stack.Pop()
	return nil
}

// bindArgsToParams binds each arg Ref to a fresh Var named after its
// corresponding formal parameter, unifying it with the caller's Var (if the
// arg is an identifier) or binding it directly (if the arg is a literal or
// already-resolved value) — this is what gives Torqlang procedures Oz-style
// pass-by-reference-to-a-logic-variable semantics without any special-casing
// of "out" parameters.
func (m *Machine) bindArgsToParams(args []Ref, params []string, env *Env) ([]Binding, error) {
	bindings := make([]Binding, len(args))
	for i, argRef := range args {
		argVV, err := m.resolveRaw(env, argRef)
		if err != nil {
			return nil, err
		}
		paramVar := store.NewVar(params[i])
		if err := store.Bind(paramVar, argVV); err != nil {
			return nil, err
		}
		bindings[i] = Binding{Name: params[i], Var: paramVar}
	}
	return bindings, nil
}

// --- resolution helpers ---

// resolveRaw returns a ref's ValueOrVar without requiring completeness —
// used for record/tuple fields and procedure arguments, which may be
// Partial (spec.md §4.2).
func (m *Machine) resolveRaw(env *Env, ref Ref) (any, error) {
	if ref.isLiteral() {
		return ref.Lit, nil
	}
	v, ok := env.Lookup(ref.Name)
	if !ok {
		return nil, fmt.Errorf("E_UNBOUND: identifier %q not in scope", ref.Name)
	}
	return v, nil
}

// resolveComplete returns a ref's fully Complete value, or a *store.Wait
// error if any transitive component is unbound.
func (m *Machine) resolveComplete(env *Env, ref Ref) (kvalue.Value, error) {
	raw, err := m.resolveRaw(env, ref)
	if err != nil {
		return nil, err
	}
	complete, err := store.CheckComplete(raw)
	if err != nil {
		return nil, err
	}
	if fv, ok := kvalue.IsFailedValue(complete); ok {
		return nil, &touchedFailed{fv}
	}
	val, ok := complete.(kvalue.Value)
	if !ok {
		return nil, fmt.Errorf("E_INVALID_ARG: expected a value")
	}
	return val, nil
}

// resolveVar resolves ref to the *store.Var it names; ref must be an
// identifier (bind/arith/etc. targets are always identifiers, never
// literals).
func (m *Machine) resolveVar(env *Env, ref Ref) (*store.Var, error) {
	if ref.isLiteral() {
		return nil, fmt.Errorf("E_INVALID_ARG: target must be an identifier")
	}
	v, ok := env.Lookup(ref.Name)
	if !ok {
		return nil, fmt.Errorf("E_UNBOUND: identifier %q not in scope", ref.Name)
	}
	return v, nil
}

func (m *Machine) resolveField(env *Env, recRef Ref, feature kvalue.FeatureKey) (any, error) {
	recVal, err := m.resolveRecOrTuple(env, recRef)
	if err != nil {
		return nil, err
	}
	switch rv := recVal.(type) {
	case *kvalue.Record:
		if rv.Label == "ActorCfg" || rv.Label == "NativeActorCfg" {
			return nil, fmt.Errorf("E_INVALID_ARG: select is not supported on %s", rv.Label)
		}
		fv, ok := rv.Get(feature)
		if !ok {
			return nil, fmt.Errorf("E_NOT_FOUND: feature %s not found on %s", feature.String(), rv.Label)
		}
		return fv, nil
	case *kvalue.Tuple:
		rec := rv.ToRecord()
		fv, ok := rec.Get(feature)
		if !ok {
			return nil, fmt.Errorf("E_NOT_FOUND: feature %s not found on tuple", feature.String())
		}
		return fv, nil
	default:
		return nil, fmt.Errorf("E_INVALID_ARG: select on non-record/tuple value")
	}
}

func (m *Machine) resolveRecOrTuple(env *Env, ref Ref) (any, error) {
	raw, err := m.resolveRaw(env, ref)
	if err != nil {
		return nil, err
	}
	resolved := store.ResolveValueOrVar(raw)
	if v, ok := resolved.(*store.Var); ok {
		return nil, &store.Wait{Barrier: v}
	}
	if fv, ok := kvalue.IsFailedValue(resolved); ok {
		return nil, &touchedFailed{fv}
	}
	return resolved, nil
}

// raise classifies an error produced during a step into the right
// StepOutcome. A *store.Wait suspends the machine (spec.md §4.2). A touched
// FailedValue halts immediately, carrying the value for the host to rewrap
// (spec.md §7 kind 5 — this is a propagation, not a throw, so it is never
// caught by an enclosing try/catch). Everything else — unification failures,
// arity/feature/type misuse, and native host exceptions — is surfaced as an
// ordinary kernel throw via unwindToCatch, so it can be caught like any other
// error#{...} value; it only becomes a Halt if nothing catches it (kind 1/3/6
// share this path, differing only in the error record's name/message).
func (m *Machine) raise(inst Inst, err error) StepOutcome {
	var w *store.Wait
	if errors.As(err, &w) {
		return Wait{Barrier: w.Barrier}
	}
	var tf *touchedFailed
	if errors.As(err, &tf) {
		return Halt{Instruction: inst, TouchedFailed: tf.fv}
	}
	var uerr *store.UnificationError
	if errors.As(err, &uerr) {
		return m.unwindToCatch(kvalue.NewErrorRecord("UnificationError", uerr.Error()), inst)
	}
	return m.unwindToCatch(kvalue.NewErrorRecord("NativeException", err.Error()), inst)
}

// RenderInst gives a short diagnostic label for the instruction active when
// a FailedValue is created or wrapped, per spec.md §3's Actor "current
// instruction" field.
func RenderInst(i Inst) string {
	return fmt.Sprintf("%T", i)
}

type touchedFailed struct{ fv *kvalue.FailedValue }

func (t *touchedFailed) Error() string { return "touched FailedValue: " + t.fv.ToDetailsString() }
