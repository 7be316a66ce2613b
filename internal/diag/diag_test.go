package diag

import (
	"strings"
	"testing"

	"slug/internal/kvalue"
)

func TestSummaryRendersErrorRecord(t *testing.T) {
	fv := &kvalue.FailedValue{
		ActorAddress: "actor-1",
		Err:          kvalue.NewErrorRecord("E_DIVIDE_BY_ZERO", "division by zero"),
		Current:      "Arith",
	}
	got := Summary(fv)
	want := "[actor-1] E_DIVIDE_BY_ZERO: division by zero at Arith"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSummaryIncludesNativeCause(t *testing.T) {
	fv := &kvalue.FailedValue{
		ActorAddress: "actor-1",
		Err:          kvalue.NewErrorRecord("NativeException", "boom"),
		Current:      "Bind",
		NativeCause:  "boom",
	}
	got := Summary(fv)
	if !strings.Contains(got, "(native: boom)") {
		t.Fatalf("expected native cause suffix, got %q", got)
	}
}

func TestSummaryFallsBackToInspectForNonErrorValue(t *testing.T) {
	fv := &kvalue.FailedValue{ActorAddress: "a", Err: kvalue.Str("plain"), Current: "Respond"}
	got := Summary(fv)
	if !strings.Contains(got, "plain") {
		t.Fatalf("expected the Str value's Inspect text, got %q", got)
	}
}

func TestChainRendersEveryLinkInnermostLast(t *testing.T) {
	root := &kvalue.FailedValue{
		ActorAddress: "child",
		Err:          kvalue.NewErrorRecord("E_ARITY", "wrong arg count"),
		Current:      "Apply",
	}
	wrapped := root.Wrap("parent", "Respond")

	got := Chain(wrapped)
	lines := strings.Split(got, "\ncaused by: ")
	if len(lines) != 2 {
		t.Fatalf("expected two chain links, got %d: %q", len(lines), got)
	}
	if !strings.Contains(lines[0], "parent") {
		t.Fatalf("expected the first line to be the outer link, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "child") {
		t.Fatalf("expected the second line to be the inner cause, got %q", lines[1])
	}
}

func TestDetailsDelegatesToFailedValue(t *testing.T) {
	fv := &kvalue.FailedValue{ActorAddress: "a1", Err: kvalue.Str("x"), Current: "Bind"}
	if Details(fv) != fv.ToDetailsString() {
		t.Fatalf("expected Details to delegate verbatim to ToDetailsString")
	}
}
