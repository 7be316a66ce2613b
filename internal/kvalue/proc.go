package kvalue

// Proc is a kernel procedure value: a closure over a captured environment.
// The KLVM's create_proc instruction builds one from a *klvm.ProcDef and the
// current environment; Env is typed as `any` here to avoid an import cycle
// (internal/klvm imports internal/kvalue, not the reverse). The concrete
// type stored is always *klvm.Env.
type Proc struct {
	Name  string
	Def   any // *klvm.ProcDef — nil for a Native-backed proc
	Env   any // *klvm.Env — captured lexical environment; nil for Native
	Arity int

	// Native, when set, backs this Proc with a host-implemented function
	// instead of a kernel ProcDef body (the "system" module's Stream.new,
	// StreamIter.new and StreamIter.apply, and Go-built handler
	// constructors). Arity counts only
	// the non-target arguments; the klvm package resolves them to Complete
	// values, calls Native, and binds its returned value into whichever
	// Var the call site names as the result (SelectApply's own Target
	// field, or apply's conventional last argument).
	Native func(args []Value) (Value, error)
}

func (*Proc) Type() string { return "Proc" }
func (p *Proc) Inspect() string {
	if p.Name != "" {
		return "proc " + p.Name
	}
	return "proc <anonymous>"
}
func (*Proc) IsValueOrVar() {}

// ErrNativeWait lets a Native proc suspend on an unbound Var without
// kvalue importing the store package: Barrier holds a *store.Var as `any`,
// unwrapped by klvm at the call site.
type ErrNativeWait struct{ Barrier any }

func (*ErrNativeWait) Error() string { return "native proc waiting on unbound var" }

// Native is an opaque native object: an actor reference, a stream, or a
// native iterator. Kind distinguishes the payload for diagnostics without
// requiring every caller to type-switch on Payload.
type Native struct {
	Kind    string
	Payload any
}

func NewNative(kind string, payload any) *Native {
	return &Native{Kind: kind, Payload: payload}
}

func (n *Native) Type() string    { return "Native:" + n.Kind }
func (n *Native) Inspect() string { return "<native " + n.Kind + ">" }
func (*Native) IsValueOrVar()     {}

const (
	NativeActorRef = "ActorRef"
	NativeStream   = "Stream"
	NativeIterator = "Iterator"
)
