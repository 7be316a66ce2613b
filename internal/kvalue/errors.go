package kvalue

// NewErrorRecord builds the kernel error#{name: ..., message: ...} record
// used for programmatic-misuse throws (spec.md §7 kinds 1/3/6).
func NewErrorRecord(name, message string) *Record {
	rec := NewRecord("error")
	rec.Set(AtomFeature("name"), Str(name))
	rec.Set(AtomFeature("message"), Str(message))
	return rec
}
