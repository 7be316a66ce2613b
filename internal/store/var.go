// Package store implements the dataflow logic store: single-assignment
// Var cells, union-find equivalence classes for unbound Vars, bind
// callbacks, and the unification protocol described in spec.md §4.1.
//
// Grounded on the teacher's internal/util/future.Future (single-assignment
// "complete exactly once" discipline) generalized two ways future.Future
// does not need to: (a) a Var may be unified with another still-unbound Var
// (union-find merge of callback lists, rather than future.Future's
// fire-and-forget goroutine), and (b) binding may be partial — a bound Var's
// payload can itself contain nested unbound Vars, so completeness is
// checked recursively rather than observed on a single "done" channel.
package store

import "sync"

// Var is a single-assignment dataflow variable. Zero value is not usable;
// construct with NewVar.
type Var struct {
	mu sync.Mutex

	// parent is the union-find representative pointer. parent == v means v
	// is its own representative. Only meaningful while unbound.
	parent *Var

	bound bool
	value any // kvalue.Value once bound; nil while unbound

	callbacks []BindCallback

	// name aids diagnostics only (e.g. "X", "$next"); never used for
	// identity or equality.
	name string
}

// BindCallback fires exactly once, in registration order, when the Var
// (or any Var unified into its equivalence class) becomes bound.
type BindCallback func(v *Var, value any)

// NewVar creates a fresh unbound Var.
func NewVar(name string) *Var {
	v := &Var{name: name}
	v.parent = v
	return v
}

func (v *Var) IsValueOrVar() {}

func (v *Var) Name() string { return v.name }

// representative walks the union-find parent chain to the canonical Var for
// v's equivalence class, path-compressing as it goes. Caller must not hold
// v.mu; representative acquires locks along the chain itself.
func (v *Var) representative() *Var {
	for {
		v.mu.Lock()
		p := v.parent
		if p == v {
			v.mu.Unlock()
			return v
		}
		v.mu.Unlock()
		// Path compression: point v directly at p's representative.
		root := p.representative()
		if root != p {
			v.mu.Lock()
			v.parent = root
			v.mu.Unlock()
		}
		v = root
		// Loop again in case a concurrent bind/union moved the root.
		v.mu.Lock()
		if v.parent == v {
			v.mu.Unlock()
			return v
		}
		v.mu.Unlock()
	}
}

// resolved returns (value, true) if the representative is bound, or
// (nil, false) if it is still unbound.
func (v *Var) resolved() (any, bool) {
	r := v.representative()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value, r.bound
}

// ResolveValueOrVar walks the representative chain for a ValueOrVar. If vv
// is a bound Var it returns the bound value; if vv is an unbound Var it
// returns the canonical representative Var; if vv is already a plain value
// it is returned unchanged.
func ResolveValueOrVar(vv any) any {
	v, ok := vv.(*Var)
	if !ok {
		return vv
	}
	r := v.representative()
	if val, bound := r.resolved(); bound {
		// The bound value may itself be a Var-free structure containing
		// nested Vars; those are resolved lazily by CheckComplete / the
		// instructions that touch them, not here.
		return val
	}
	return r
}

// AddCallback registers cb to fire when v's equivalence class binds. If
// already bound, cb fires synchronously and immediately (still "exactly
// once", just with no delay).
func (v *Var) AddCallback(cb BindCallback) {
	r := v.representative()
	r.mu.Lock()
	if r.bound {
		val := r.value
		r.mu.Unlock()
		cb(r, val)
		return
	}
	r.callbacks = append(r.callbacks, cb)
	r.mu.Unlock()
}
