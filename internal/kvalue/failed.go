package kvalue

import "strings"

// FailedValue is the kernel error value carrying actor address, error,
// current instruction, and an optional chained cause (spec.md §6/§7). It
// lives in kvalue (rather than the actor or klvm package) because a
// FailedValue is itself a first-class kernel Value — touching one during
// resolution is a Value-universe event, not merely a Go error.
type FailedValue struct {
	ActorAddress string
	Err          Value
	Current      string // rendered current instruction, for diagnostics
	Cause        *FailedValue
	NativeCause  string
}

func (*FailedValue) Type() string { return "FailedValue" }

func (f *FailedValue) Inspect() string {
	return f.toDetails(0)
}

func (*FailedValue) IsValueOrVar() {}

// ToDetailsString renders the full FailedValue chain for diagnostic output
// (spec.md §6).
func (f *FailedValue) ToDetailsString() string {
	return f.toDetails(0)
}

func (f *FailedValue) toDetails(depth int) string {
	var b strings.Builder
	indent := strings.Repeat("  ", depth)
	b.WriteString(indent)
	b.WriteString("FailedValue{actorAddress: ")
	b.WriteString(f.ActorAddress)
	b.WriteString(", error: ")
	if f.Err != nil {
		b.WriteString(f.Err.Inspect())
	} else {
		b.WriteString("nothing")
	}
	b.WriteString(", current: ")
	b.WriteString(f.Current)
	if f.NativeCause != "" {
		b.WriteString(", nativeCause: ")
		b.WriteString(f.NativeCause)
	}
	b.WriteString("}")
	if f.Cause != nil {
		b.WriteString("\ncaused by:\n")
		b.WriteString(f.Cause.toDetails(depth + 1))
	}
	return b.String()
}

// Wrap builds a new FailedValue with this one chained as the cause —
// respond()'s "wraps it in a FailedValue chain if already a FailedValue so
// the parent sees the call-site's context" behavior (spec.md §4.5).
func (f *FailedValue) Wrap(actorAddress, current string) *FailedValue {
	return &FailedValue{ActorAddress: actorAddress, Err: f.Err, Current: current, Cause: f}
}

// IsFailedValue narrows a resolved value to *FailedValue.
func IsFailedValue(v any) (*FailedValue, bool) {
	fv, ok := v.(*FailedValue)
	return fv, ok
}
