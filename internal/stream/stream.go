// Package stream implements the lazy stream object and its iterator
// (spec.md §4.6), grounded on the teacher's internal/object.Channel
// (capacity/closed bookkeeping) and internal/util/future's single-assignment
// discipline, generalized into a linked list of dataflow Vars instead of a
// Go channel — kernel code has no native channel type (spec.md's Non-goals
// exclude distributed transport but not this internal mechanism).
package stream

import (
	"slug/internal/kvalue"
	"slug/internal/store"
)

// Ref is the opaque request-id a StreamObj uses when it issues its
// publisher request (spec.md §4.4's "Stream request-id" shape). It is
// carried by mailbox.Envelope.RequestID as `any` to avoid mailbox depending
// on this package.
type Ref struct {
	Obj *Obj
}

// Obj is a StreamObj: a singly-linked list of Vars with an unbound tail.
// Every cell except the tail is either bound or will be bound by the
// response-binding fixpoint (spec.md §4.6).
type Obj struct {
	Publisher any // *actor.Actor, opaque to this package
	Request   kvalue.Value

	Tail *store.Var // the unbound hole new elements append to

	// Reissue is called by the actor package's bindStreamResponse when the
	// publisher responds with Eof#{more: true}; it is set by whoever
	// constructs the Obj (the actor package, which alone knows how to
	// re-send a request to Publisher).
	Reissue func(obj *Obj)
}

func (*Obj) Type() string    { return "Stream" }
func (*Obj) Inspect() string { return "<stream>" }
func (*Obj) IsValueOrVar()   {}

// New constructs a StreamObj with a fresh unbound tail. The caller (the
// actor package's Stream.new native) is responsible for sending Request to
// Publisher with a Ref{Obj: obj} request-id before returning obj to kernel
// code, and for supplying Reissue.
func New(publisher any, request kvalue.Value) *Obj {
	return &Obj{Publisher: publisher, Request: request, Tail: store.NewVar("$streamTail")}
}

// Append binds the current tail to a Cons#(v, next) cell and advances o.Tail
// to next, a fresh unbound Var; it returns only the Bind error, if any
// (spec.md §4.4's tuple-response case: "bind the first to the current tail,
// append the rest as pre-bound entries, then append a fresh unbound tail").
func (o *Obj) Append(v kvalue.Value) error {
	next := store.NewVar("$streamTail")
	cell := kvalue.NewTuple("Cons", v.(kvalue.ValueOrVar), next)
	if err := store.Bind(o.Tail, cell); err != nil {
		return err
	}
	o.Tail = next
	return nil
}

// Terminate binds the current tail to Eof, ending the stream (spec.md
// §4.6/§4.4's Eof#{more:false} case).
func (o *Obj) Terminate() error {
	return store.Bind(o.Tail, kvalue.Eof)
}

// Iter is StreamIter: a cursor over an Obj's linked list, implementing
// reverse-dataflow iteration (spec.md §4.6).
type Iter struct {
	head    *store.Var
	waiting bool
}

// NewIter returns an iterator starting at obj's current tail, which is the
// stream's first cell only while nothing has been appended yet.
func NewIter(obj *Obj) *Iter {
	return &Iter{head: obj.Tail}
}

func (*Iter) Type() string    { return "Iterator" }
func (*Iter) Inspect() string { return "<stream iterator>" }
func (*Iter) IsValueOrVar()   {}

// Apply implements StreamIter.apply(bindTarget) (spec.md §4.6): advances
// the cursor, returning the value to bind into the caller's target Var, or
// an error wrapping the Var to suspend on.
func (it *Iter) Apply() (kvalue.Value, error) {
	resolved := store.ResolveValueOrVar(it.head)
	if v, ok := resolved.(*store.Var); ok {
		it.waiting = true
		return nil, &kvalue.ErrNativeWait{Barrier: v}
	}
	it.waiting = false
	if resolved == kvalue.Eof {
		return kvalue.Eof, nil
	}
	cons, ok := resolved.(*kvalue.Tuple)
	if !ok || cons.Arity() != 2 {
		return nil, &kvalue.ErrNativeWait{Barrier: it.head}
	}
	head := cons.Elements[0].(kvalue.Value)
	it.head = cons.Elements[1].(*store.Var)
	return head, nil
}
