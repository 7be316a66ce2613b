// Package mailbox implements the actor mailbox: a priority-ordered envelope
// queue local to each actor (spec.md §3/§4.3). Grounded on the teacher's
// kernel.Message struct (From/To/Payload/Resp) generalized with explicit
// priority and envelope-kind flags, since a plain Go channel (the teacher's
// kernel.Actor.inbox) cannot expose peekNext/batch-selection semantics.
package mailbox

// Priority values per spec.md §3/§6: lower number dequeues first.
const (
	PriorityControl  = 0
	PriorityResponse = 1
	PriorityNotify   = 2 // notify and request share priority 2
)

// Kind distinguishes the four message kinds (spec.md GLOSSARY).
type Kind int

const (
	KindControl Kind = iota
	KindResponse
	KindNotify
	KindRequest
)

func (k Kind) Priority() int {
	switch k {
	case KindControl:
		return PriorityControl
	case KindResponse:
		return PriorityResponse
	default:
		return PriorityNotify
	}
}

// RequestID is an opaque token the original requester chose. For unary
// requests it directly addresses a target Var; for stream requests it is a
// stream.Ref value (defined in internal/stream and carried here as `any` so
// mailbox does not depend on that package).
type RequestID any

// Envelope carries a message value together with sender, request-id, and
// kind flags (spec.md GLOSSARY).
type Envelope struct {
	Kind      Kind
	Sender    any // *actor.Actor, optional
	Message   any // kvalue.Value
	RequestID RequestID
}

func (e Envelope) IsControl() bool  { return e.Kind == KindControl }
func (e Envelope) IsResponse() bool { return e.Kind == KindResponse }
func (e Envelope) IsNotify() bool   { return e.Kind == KindNotify }
func (e Envelope) IsRequest() bool  { return e.Kind == KindRequest }

func (e Envelope) priority() int { return e.Kind.Priority() }
