package kvalue

import "testing"

func TestRecordSetGetPreservesInsertionOrder(t *testing.T) {
	rec := NewRecord("point")
	rec.Set(AtomFeature("y"), Int64(2))
	rec.Set(AtomFeature("x"), Int64(1))

	if rec.Arity() != 2 {
		t.Fatalf("expected arity 2, got %d", rec.Arity())
	}
	if rec.Order[0] != AtomFeature("y") || rec.Order[1] != AtomFeature("x") {
		t.Fatalf("expected insertion order preserved, got %v", rec.Order)
	}

	v, ok := rec.Get(AtomFeature("x"))
	if !ok || v.(Int64) != 1 {
		t.Fatalf("expected x=1, got %v ok=%v", v, ok)
	}
}

func TestRecordSetOverwriteDoesNotDuplicateOrder(t *testing.T) {
	rec := NewRecord("r")
	rec.Set(AtomFeature("a"), Int64(1))
	rec.Set(AtomFeature("a"), Int64(2))

	if rec.Arity() != 1 {
		t.Fatalf("expected overwrite to keep arity 1, got %d", rec.Arity())
	}
	v, _ := rec.Get(AtomFeature("a"))
	if v.(Int64) != 2 {
		t.Fatalf("expected overwritten value 2, got %v", v)
	}
}

func TestTupleToRecordUsesIntFeatures(t *testing.T) {
	tup := NewTuple("pair", Int64(10), Str("hi"))
	rec := tup.ToRecord()

	if rec.Label != "pair" {
		t.Fatalf("expected label 'pair', got %q", rec.Label)
	}
	v0, ok := rec.Get(IntFeature(0))
	if !ok || v0.(Int64) != 10 {
		t.Fatalf("expected feature 0 = 10, got %v", v0)
	}
	v1, ok := rec.Get(IntFeature(1))
	if !ok || v1.(Str) != "hi" {
		t.Fatalf("expected feature 1 = 'hi', got %v", v1)
	}
}

func TestSortedFeaturesOrdersIntsBeforeStringsBeforeAtoms(t *testing.T) {
	rec := NewRecord("r")
	rec.Set(AtomFeature("z"), Int64(0))
	rec.Set(StringFeature("b"), Int64(0))
	rec.Set(IntFeature(5), Int64(0))
	rec.Set(IntFeature(1), Int64(0))

	sorted := rec.SortedFeatures()
	if len(sorted) != 4 {
		t.Fatalf("expected 4 features, got %d", len(sorted))
	}
	if sorted[0] != IntFeature(1) || sorted[1] != IntFeature(5) {
		t.Fatalf("expected int features first in ascending order, got %v", sorted[:2])
	}
	if sorted[2] != StringFeature("b") {
		t.Fatalf("expected string feature third, got %v", sorted[2])
	}
	if sorted[3] != AtomFeature("z") {
		t.Fatalf("expected atom feature last, got %v", sorted[3])
	}
}

func TestNewErrorRecordShape(t *testing.T) {
	rec := NewErrorRecord("E_DIVIDE_BY_ZERO", "division by zero")
	if rec.Label != "error" {
		t.Fatalf("expected label 'error', got %q", rec.Label)
	}
	name, _ := rec.Get(AtomFeature("name"))
	msg, _ := rec.Get(AtomFeature("message"))
	if name.(Str) != "E_DIVIDE_BY_ZERO" || msg.(Str) != "division by zero" {
		t.Fatalf("unexpected error record fields: name=%v message=%v", name, msg)
	}
}

func TestFailedValueWrapChainsCause(t *testing.T) {
	root := &FailedValue{ActorAddress: "a1", Err: Str("boom"), Current: "Arith"}
	wrapped := root.Wrap("a2", "Respond")

	if wrapped.Cause != root {
		t.Fatalf("expected Wrap to chain the original as Cause")
	}
	if wrapped.ActorAddress != "a2" || wrapped.Current != "Respond" {
		t.Fatalf("expected the wrapper to carry the new actor/current, got %+v", wrapped)
	}
	if wrapped.Err != root.Err {
		t.Fatalf("expected Wrap to preserve the original Err value")
	}
}

func TestIsFailedValueNarrows(t *testing.T) {
	fv := &FailedValue{ActorAddress: "a1", Err: Str("x"), Current: "Bind"}
	if got, ok := IsFailedValue(fv); !ok || got != fv {
		t.Fatalf("expected IsFailedValue to narrow a *FailedValue")
	}
	if _, ok := IsFailedValue(Int64(1)); ok {
		t.Fatalf("expected IsFailedValue to reject a non-FailedValue")
	}
}

func TestIsRecordIsTuple(t *testing.T) {
	rec := NewRecord("r")
	tup := NewTuple("t")

	if _, ok := IsRecord(rec); !ok {
		t.Fatalf("expected IsRecord to recognize a *Record")
	}
	if _, ok := IsRecord(tup); ok {
		t.Fatalf("expected IsRecord to reject a *Tuple")
	}
	if _, ok := IsTuple(tup); !ok {
		t.Fatalf("expected IsTuple to recognize a *Tuple")
	}
	if _, ok := IsTuple(rec); ok {
		t.Fatalf("expected IsTuple to reject a *Record")
	}
}
