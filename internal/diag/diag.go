// Package diag renders kernel error values — FailedValue chains and
// error#{name, message} records — into host-facing diagnostic text. It does
// not classify or construct these values (klvm.Machine.raise does that,
// per SPEC_FULL.md §7); diag only formats what already exists, the way the
// teacher's internal/log package formats already-built log records rather
// than deciding what gets logged.
package diag

import (
	"fmt"
	"strings"

	"slug/internal/kvalue"
)

// Summary is a single flattened line per FailedValue chain link, suitable
// for a CLI's one-line error report (repl/cmd/torqd "run" output).
func Summary(fv *kvalue.FailedValue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s at %s", fv.ActorAddress, errorText(fv.Err), fv.Current)
	if fv.NativeCause != "" {
		fmt.Fprintf(&b, " (native: %s)", fv.NativeCause)
	}
	return b.String()
}

// Chain renders every link of a FailedValue's cause chain as successive
// Summary lines, innermost cause last — the multi-actor propagation path
// spec.md §7 describes respond() building up as a FailedValue crosses
// actor boundaries.
func Chain(fv *kvalue.FailedValue) string {
	var lines []string
	for cur := fv; cur != nil; cur = cur.Cause {
		lines = append(lines, Summary(cur))
	}
	return strings.Join(lines, "\ncaused by: ")
}

// Details delegates to FailedValue.ToDetailsString, the fully nested,
// indented rendering kept on the value type itself since it requires no
// host-facing formatting decisions — diag re-exports it so callers only
// need to import one package for error presentation.
func Details(fv *kvalue.FailedValue) string {
	return fv.ToDetailsString()
}

// errorText renders the Err field: error#{name, message} records print as
// "name: message"; any other kernel value falls back to its own Inspect.
func errorText(v kvalue.Value) string {
	if v == nil {
		return "nothing"
	}
	rec, ok := kvalue.IsRecord(v)
	if !ok || rec.Label != "error" {
		return v.Inspect()
	}
	name, _ := rec.Get(kvalue.AtomFeature("name"))
	msg, _ := rec.Get(kvalue.AtomFeature("message"))
	nameStr, _ := name.(kvalue.Str)
	msgStr, _ := msg.(kvalue.Str)
	if nameStr == "" {
		return v.Inspect()
	}
	return fmt.Sprintf("%s: %s", string(nameStr), string(msgStr))
}
