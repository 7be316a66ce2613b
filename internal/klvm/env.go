// Package klvm implements the kernel-language virtual machine: the small
// instruction set described in spec.md §4.2 and the compute(budget)
// interpreter that executes it, suspending on unbound dataflow Vars.
//
// Grounded on the teacher's internal/runtime.Task — generalizing the
// teacher's tree-walking `Eval(ast.Node) object.Object` into the closed
// instruction sum + explicit machine stack that spec.md §9's design notes
// call for ("visitor pattern → tagged variants", "exception-based control
// flow → result/signal enum"). Kernel procedures never "return" a value on
// the Go call stack the way the teacher's Eval does; instead, per Oz/Mozart
// kernel-language style, every value-producing instruction binds an
// explicit target Var — this is what lets compute(budget) suspend and
// resume mid-computation without an unwindable Go call stack.
package klvm

import "slug/internal/store"

// Env is an immutable ordered list of identifier -> *store.Var entries
// chained to a parent environment; lookup walks leaf-to-root (spec.md §3).
// Grounded on the teacher's object.Environment (Store map + outer pointer),
// generalized to preserve insertion order so free-variable capture (spawn,
// act) can enumerate an environment's entries deterministically.
type Env struct {
	parent  *Env
	names   []string
	vars    map[string]*store.Var
	isRoot  bool
}

// NewRootEnv creates the process-wide root environment. It is built once at
// initialization (spec.md §9 "Global state") and never mutated afterward.
// It holds no bindings: Env has no Bind method, and the intrinsics
// (act/import/respond/self/spawn) are not root-bound procedures but their
// own instructions (ActInst, ImportInst, RespondInst, SelfInst, SpawnInst)
// that the Machine routes to its Host.
func NewRootEnv() *Env {
	return &Env{vars: map[string]*store.Var{}, isRoot: true}
}

// Extend returns a new child environment with one additional binding,
// leaving e unchanged (environments are immutable once constructed).
func (e *Env) Extend(name string, v *store.Var) *Env {
	child := &Env{parent: e, vars: map[string]*store.Var{name: v}, names: []string{name}}
	return child
}

// ExtendMany returns a new child environment with several additional
// bindings, in the given order.
func (e *Env) ExtendMany(bindings []Binding) *Env {
	child := &Env{parent: e, vars: make(map[string]*store.Var, len(bindings))}
	for _, b := range bindings {
		child.vars[b.Name] = b.Var
		child.names = append(child.names, b.Name)
	}
	return child
}

// Binding pairs an identifier with the Var it resolves to.
type Binding struct {
	Name string
	Var  *store.Var
}

// Lookup walks leaf-to-root for name, returning (Var, true) if found.
func (e *Env) Lookup(name string) (*store.Var, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// IsFromRoot reports whether name, if found, resolves to a binding held
// by the static root environment itself (used by spawn's free-variable
// capture-completeness walk, spec.md §4.5, to exclude root-bound
// intrinsics from the captured-Var check).
func (e *Env) IsFromRoot(name string) bool {
	for cur := e; cur != nil; cur = cur.parent {
		if _, ok := cur.vars[name]; ok {
			return cur.isRoot
		}
	}
	return false
}

func (e *Env) root() *Env {
	cur := e
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// FreeVars returns the (name, Var) pairs introduced between e and its root,
// in the order captured, skipping the given excluded name (the spawn/act
// target is never itself a captured free variable). Duplicates are
// collapsed, keeping the innermost (nearest to e) binding — shadowing.
func (e *Env) FreeVars(excludeName string) []Binding {
	seen := map[string]bool{}
	var out []Binding
	for cur := e; cur != nil && !cur.isRoot; cur = cur.parent {
		for _, name := range cur.names {
			if name == excludeName || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, Binding{Name: name, Var: cur.vars[name]})
		}
	}
	return out
}
