package store

import (
	"fmt"

	"slug/internal/kvalue"
)

// UnificationError is the non-recoverable structural-mismatch error raised
// by Bind. The KLVM (klvm.Machine.raise) surfaces it to kernel code as a
// throw of error#{name: "UnificationError", ...} per spec.md §7, which a
// try/catch can catch like any other throw.
type UnificationError struct {
	Left, Right any
	Reason      string
}

func (e *UnificationError) Error() string {
	return fmt.Sprintf("UnificationError: %s (left=%v, right=%v)", e.Reason, e.Left, e.Right)
}

// Wait is the interpreter suspension signal: progress requires Barrier to
// become bound. It is never user-visible; the KLVM catches it at the
// instruction boundary (spec.md §4.1/§4.2).
type Wait struct {
	Barrier *Var
}

func (w *Wait) Error() string { return "wait on unbound var" }

// Bind implements the store's sole operation of interest: dataflow
// unification of a Var (or the representative a caller already resolved)
// with a value. value may itself be a *Var (merges equivalence classes) or
// any other ValueOrVar/kvalue.Value.
func Bind(v *Var, value any) error {
	r := v.representative()

	if other, ok := value.(*Var); ok {
		return unionVars(r, other)
	}

	r.mu.Lock()
	if !r.bound {
		r.value = value
		r.bound = true
		cbs := r.callbacks
		r.callbacks = nil
		r.mu.Unlock()
		for _, cb := range cbs {
			cb(r, value)
		}
		return nil
	}
	existing := r.value
	r.mu.Unlock()

	unified, err := Unify(existing, value)
	if err != nil {
		return err
	}
	// Structural unification may have produced a strictly more-bound
	// value (e.g. a record field filled in); rebind only if it changed
	// identity. Primitive/equal cases return the existing value unchanged.
	if unified != existing {
		r.mu.Lock()
		r.value = unified
		r.mu.Unlock()
	}
	return nil
}

// unionVars merges two unbound equivalence classes (or, if one side is
// already bound, binds the other into it).
func unionVars(a, b *Var) error {
	a = a.representative()
	b = b.representative()
	if a == b {
		return nil
	}

	a.mu.Lock()
	aBound, aVal := a.bound, a.value
	a.mu.Unlock()
	b.mu.Lock()
	bBound, bVal := b.bound, b.value
	b.mu.Unlock()

	switch {
	case aBound && bBound:
		unified, err := Unify(aVal, bVal)
		if err != nil {
			return err
		}
		a.mu.Lock()
		a.value = unified
		a.mu.Unlock()
		return nil
	case aBound && !bBound:
		return Bind(b, aVal)
	case !aBound && bBound:
		return Bind(a, bVal)
	default:
		// Both unbound: merge callback lists, pick a as representative.
		a.mu.Lock()
		b.mu.Lock()
		b.parent = a
		a.callbacks = append(a.callbacks, b.callbacks...)
		b.callbacks = nil
		b.mu.Unlock()
		a.mu.Unlock()
		return nil
	}
}

// Unify structurally unifies two bound values per spec.md §4.1 step 2:
// equal primitives succeed; records unify by matching labels and unifying
// fields of common features (extra features on either side become the
// union); tuples unify by matching arity and unifying positionally;
// incompatible shapes raise UnificationError.
func Unify(a, b any) (any, error) {
	if av, ok := a.(*Var); ok {
		if err := Bind(av, b); err != nil {
			return nil, err
		}
		return ResolveValueOrVar(av), nil
	}
	if bv, ok := b.(*Var); ok {
		if err := Bind(bv, a); err != nil {
			return nil, err
		}
		return ResolveValueOrVar(bv), nil
	}

	switch av := a.(type) {
	case *kvalue.Record:
		bv, ok := b.(*kvalue.Record)
		if !ok || av.Label != bv.Label {
			return nil, &UnificationError{Left: a, Right: b, Reason: "record label/shape mismatch"}
		}
		return unifyRecords(av, bv)
	case *kvalue.Tuple:
		bv, ok := b.(*kvalue.Tuple)
		if !ok || av.Label != bv.Label || av.Arity() != bv.Arity() {
			return nil, &UnificationError{Left: a, Right: b, Reason: "tuple label/arity mismatch"}
		}
		return unifyTuples(av, bv)
	default:
		if valuesEqual(a, b) {
			return a, nil
		}
		return nil, &UnificationError{Left: a, Right: b, Reason: "primitive value mismatch"}
	}
}

func unifyRecords(a, b *kvalue.Record) (*kvalue.Record, error) {
	out := kvalue.NewRecord(a.Label)
	seen := map[kvalue.FeatureKey]bool{}
	for _, f := range a.Order {
		av := a.Fields[f]
		if bv, ok := b.Fields[f]; ok {
			unified, err := Unify(av, bv)
			if err != nil {
				return nil, err
			}
			out.Set(f, unified.(kvalue.ValueOrVar))
		} else {
			out.Set(f, av)
		}
		seen[f] = true
	}
	for _, f := range b.Order {
		if !seen[f] {
			out.Set(f, b.Fields[f])
		}
	}
	return out, nil
}

func unifyTuples(a, b *kvalue.Tuple) (*kvalue.Tuple, error) {
	out := make([]kvalue.ValueOrVar, len(a.Elements))
	for i := range a.Elements {
		unified, err := Unify(a.Elements[i], b.Elements[i])
		if err != nil {
			return nil, err
		}
		out[i] = unified.(kvalue.ValueOrVar)
	}
	return kvalue.NewTuple(a.Label, out...), nil
}

func valuesEqual(a, b any) bool {
	if da, ok := a.(kvalue.Decimal); ok {
		if db, ok := b.(kvalue.Decimal); ok {
			return da.Eq(db)
		}
		return false
	}
	return a == b
}

// CheckComplete returns the value when vv transitively resolves to a
// Complete value (spec.md §3: every transitive component is fully bound and
// immutable); otherwise it returns a *Wait carrying the first unbound
// sub-Var as the barrier.
func CheckComplete(vv any) (any, error) {
	resolved := ResolveValueOrVar(vv)
	if v, ok := resolved.(*Var); ok {
		return nil, &Wait{Barrier: v}
	}
	switch val := resolved.(type) {
	case *kvalue.Record:
		for _, f := range val.Order {
			if _, err := CheckComplete(val.Fields[f]); err != nil {
				return nil, err
			}
		}
		return val, nil
	case *kvalue.Tuple:
		for _, e := range val.Elements {
			if _, err := CheckComplete(e); err != nil {
				return nil, err
			}
		}
		return val, nil
	case *kvalue.Proc:
		// Procedure completeness resolves captured-env Vars; the klvm
		// package supplies the Env walker via EnvChecker to avoid
		// an import cycle (store cannot import klvm).
		if EnvChecker != nil {
			if err := EnvChecker(val.Env); err != nil {
				return nil, err
			}
		}
		return val, nil
	default:
		return val, nil
	}
}

// EnvChecker, if set by the klvm package at init time, walks a captured
// *klvm.Env and returns a *Wait if any captured Var is unbound. kept as a
// package-level hook rather than an interface parameter so CheckComplete's
// call sites (store, actor) don't need to know about klvm.Env.
var EnvChecker func(env any) error
