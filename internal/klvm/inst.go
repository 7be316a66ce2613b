package klvm

import "slug/internal/kvalue"

// Span is a source span for diagnostics; the surface-syntax
// parser/lowering pass (out of scope per spec.md §1) is the only producer
// of real spans — the KLVM only carries and reports them.
type Span struct {
	File        string
	Line, Col   int
}

// Inst is the closed sum of kernel instructions (spec.md §4.2). Every
// instruction is a structured statement node with a source span.
type Inst interface {
	Span() Span
}

type base struct{ span Span }

func (b base) Span() Span { return b.span }

// Ref resolves to a ValueOrVar at execution time: either a literal constant
// or an identifier looked up in the current Env.
type Ref struct {
	Lit  kvalue.Value
	Name string
}

func Lit(v kvalue.Value) Ref  { return Ref{Lit: v} }
func Ident(name string) Ref   { return Ref{Name: name} }

func (r Ref) isLiteral() bool { return r.Lit != nil }

// --- variable declaration / scope ---

// DeclareVar introduces Name as a fresh unbound Var in a new child
// environment for Body.
type DeclareVar struct {
	base
	Name string
	Body Inst
}

// --- bind ---

type Bind struct {
	base
	Target Ref
	Value  Ref
}

// --- arithmetic / comparison ---

type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
)

type Arith struct {
	base
	Op     ArithOp
	Target Ref
	A, B   Ref
}

type CmpOp int

const (
	OpEq CmpOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

type Cmp struct {
	base
	Op     CmpOp
	Target Ref
	A, B   Ref
}

// --- record / tuple construction ---

type FieldInit struct {
	Feature kvalue.FeatureKey
	Value   Ref
}

type CreateRec struct {
	base
	Target Ref
	Label  string
	Fields []FieldInit
}

type CreateTuple struct {
	base
	Target   Ref
	Label    string
	Elements []Ref
}

// --- field selection ---

type Select struct {
	base
	Target  Ref
	Rec     Ref
	Feature kvalue.FeatureKey
}

// SelectApply selects Feature off Rec (expected to be a Proc, or a Record
// whose feature holds a Proc) and immediately applies it to Args, binding
// the result to Target — the method-call shorthand of spec.md §4.2.
type SelectApply struct {
	base
	Target  Ref
	Rec     Ref
	Feature kvalue.FeatureKey
	Args    []Ref
}

// --- procedures ---

// ProcDef is a compiled procedure: its parameter names (the last parameter
// is conventionally the result/target Var, per spec.md §4.5's "target"
// pattern) and its body instruction. FreeNames lists the identifiers the
// lowering pass determined are free in Body — CreateProc captures exactly
// these from the defining Env.
type ProcDef struct {
	Name      string
	Params    []string
	FreeNames []string
	Body      Inst
}

type CreateProc struct {
	base
	Target Ref
	Def    *ProcDef
}

type Apply struct {
	base
	Proc Ref
	Args []Ref
}

// --- control flow ---

type If struct {
	base
	Cond       Ref
	Then, Else Inst
}

// CaseClause pattern-matches Value's shape (by record label) and runs Then
// with Bindings introduced into scope.
type CaseClause struct {
	Label    string
	Bindings []string // identifiers bound positionally to the matched value's features, in field order
	Then     Inst
}

type Case struct {
	base
	Value   Ref
	Clauses []CaseClause
	Else    Inst
}

type Seq struct {
	base
	Stmts []Inst
}

type Throw struct {
	base
	Value Ref
}

// TryCatch catches any value thrown inside Body (there is no pattern
// filter), binding it as Param in Handler; uncaught throws propagate as an
// actor halt (spec.md §7).
type TryCatch struct {
	base
	Body    Inst
	Param   string
	Handler Inst
}

// --- actor intrinsics ---

// ActInst spawns a child sub-actor computation (spec.md §4.5). Body is the
// child's body; Target receives the spawned child's eventual respond(...)
// value via the standard response-binding path, not a direct return.
type ActInst struct {
	base
	Body   Inst
	Target Ref
}

// SpawnInst spawns a full child actor from an ActorCfg record (spec.md
// §4.5).
type SpawnInst struct {
	base
	Cfg    Ref
	Target Ref
}

type SelfInst struct {
	base
	Target Ref
}

type RespondInst struct {
	base
	Value Ref
}

type ImportInst struct {
	base
	Qualifier  string
	Selections []string
}
