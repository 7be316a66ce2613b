// Package kvalue implements the Torqlang kernel value universe: the tagged
// values that dataflow variables may be bound to. Every value is either
// Complete (transitively free of unbound logic variables) or Partial.
//
// The shapes mirror the teacher's internal/object package (booleans,
// strings, lists/maps) generalized to records and tuples as spec.md §3
// requires, with ValueOrVar threaded through composite fields so a Record
// or Tuple can hold unbound logic variables as nested features.
package kvalue

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Value is any kernel value: a primitive, a composite (Record/Tuple), a
// Proc, or an opaque native object.
type Value interface {
	Type() string
	Inspect() string
}

// ValueOrVar is implemented by every concrete kernel value type in this
// package (the Value interface itself does not include it) and by store.Var so that
// record/tuple fields and environment slots can hold either a resolved
// value or a yet-unbound logic variable without an import cycle between
// kvalue and store.
type ValueOrVar interface {
	IsValueOrVar()
}

// Bool is the kernel boolean singleton pair.
type Bool bool

func (Bool) Type() string      { return "Bool" }
func (b Bool) Inspect() string { return strconv.FormatBool(bool(b)) }
func (Bool) IsValueOrVar()     {}

// Int64 is the kernel 64-bit integer.
type Int64 int64

func (Int64) Type() string      { return "Int64" }
func (i Int64) Inspect() string { return strconv.FormatInt(int64(i), 10) }
func (Int64) IsValueOrVar()     {}

// Str is the kernel string.
type Str string

func (Str) Type() string { return "Str" }
func (s Str) Inspect() string {
	return "'" + strings.ReplaceAll(string(s), "'", "\\'") + "'"
}
func (Str) IsValueOrVar() {}

// Char is a single kernel character (a Unicode code point).
type Char rune

func (Char) Type() string      { return "Char" }
func (c Char) Inspect() string { return "&" + string(rune(c)) }
func (Char) IsValueOrVar()     {}

type nothingType struct{}

// Nothing is the kernel singleton representing "no value" (distinct from an
// unbound Var: Nothing is itself a Complete value).
var Nothing Value = nothingType{}

func (nothingType) Type() string      { return "Nothing" }
func (nothingType) Inspect() string   { return "nothing" }
func (nothingType) IsValueOrVar()     {}

type eofType struct{}

// Eof is the kernel singleton used to terminate streams.
var Eof Value = eofType{}

func (eofType) Type() string    { return "Eof" }
func (eofType) Inspect() string { return "eof" }
func (eofType) IsValueOrVar()   {}

// FeatureKey is the normalized, comparable form of a feature used to index
// into a Record's field map. The Kind tag keeps the three feature kinds
// distinct: IntFeature(0) and StringFeature("0") address different slots,
// as do an atom and a string with the same text.
type FeatureKey struct {
	Kind featureKind
	Str  string
	Int  int64
}

type featureKind int

const (
	featureAtom featureKind = iota
	featureInt
	featureString
)

func AtomFeature(name string) FeatureKey   { return FeatureKey{Kind: featureAtom, Str: name} }
func IntFeature(n int64) FeatureKey        { return FeatureKey{Kind: featureInt, Int: n} }
func StringFeature(s string) FeatureKey    { return FeatureKey{Kind: featureString, Str: s} }

func (f FeatureKey) String() string {
	switch f.Kind {
	case featureInt:
		return strconv.FormatInt(f.Int, 10)
	case featureString:
		return strconv.Quote(f.Str)
	default:
		return f.Str
	}
}

// Record is a labeled mapping feature→ValueOrVar with a record label (an
// atom). Tuple is the special case where features are 0..n-1 in insertion
// order; see Tuple below.
type Record struct {
	Label  string
	Order  []FeatureKey
	Fields map[FeatureKey]ValueOrVar
}

func NewRecord(label string) *Record {
	return &Record{Label: label, Fields: map[FeatureKey]ValueOrVar{}}
}

func (r *Record) Type() string  { return "Record" }
func (Record) IsValueOrVar()    {}

func (r *Record) Set(f FeatureKey, v ValueOrVar) {
	if _, exists := r.Fields[f]; !exists {
		r.Order = append(r.Order, f)
	}
	r.Fields[f] = v
}

func (r *Record) Get(f FeatureKey) (ValueOrVar, bool) {
	v, ok := r.Fields[f]
	return v, ok
}

func (r *Record) Arity() int { return len(r.Order) }

func (r *Record) Inspect() string {
	var b strings.Builder
	b.WriteString(r.Label)
	b.WriteString("#{")
	for i, f := range r.Order {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.String())
		b.WriteString(": ")
		b.WriteString(inspectField(r.Fields[f]))
	}
	b.WriteString("}")
	return b.String()
}

// SortedFeatures returns features in Torqlang's canonical comparison order:
// integers first (ascending), then strings, then atoms.
func (r *Record) SortedFeatures() []FeatureKey {
	rank := map[featureKind]int{featureInt: 0, featureString: 1, featureAtom: 2}
	out := append([]FeatureKey(nil), r.Order...)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind != b.Kind {
			return rank[a.Kind] < rank[b.Kind]
		}
		if a.Kind == featureInt {
			return a.Int < b.Int
		}
		return a.Str < b.Str
	})
	return out
}

// Tuple is a Record with integer features 0..n-1, insertion order
// significant. Represented directly as a slice for cheap positional access;
// ToRecord materializes the equivalent Record view when one is needed.
type Tuple struct {
	Label    string
	Elements []ValueOrVar
}

func NewTuple(label string, elems ...ValueOrVar) *Tuple {
	return &Tuple{Label: label, Elements: elems}
}

func (t *Tuple) Type() string { return "Tuple" }
func (Tuple) IsValueOrVar()   {}

func (t *Tuple) Arity() int { return len(t.Elements) }

func (t *Tuple) Inspect() string {
	var b strings.Builder
	b.WriteString(t.Label)
	b.WriteString("#(")
	for i, e := range t.Elements {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(inspectField(e))
	}
	b.WriteString(")")
	return b.String()
}

// ToRecord returns a Record view of the tuple with integer features
// 0..n-1, used where unification must treat tuples and records uniformly.
func (t *Tuple) ToRecord() *Record {
	rec := NewRecord(t.Label)
	for i, e := range t.Elements {
		rec.Set(IntFeature(int64(i)), e)
	}
	return rec
}

func inspectField(v ValueOrVar) string {
	if v == nil {
		return "<nil>"
	}
	if val, ok := v.(Value); ok {
		return val.Inspect()
	}
	return fmt.Sprintf("%v", v)
}

// IsRecord/IsTuple are narrow helpers used by the KLVM's select/create
// instructions.
func IsRecord(v Value) (*Record, bool) {
	r, ok := v.(*Record)
	return r, ok
}

func IsTuple(v Value) (*Tuple, bool) {
	t, ok := v.(*Tuple)
	return t, ok
}
