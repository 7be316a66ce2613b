package actor

import (
	"slug/internal/klvm"
	"slug/internal/kvalue"
	"slug/internal/mailbox"
	"slug/internal/store"
)

// The five control messages of spec.md §4.4: Resume, Configure(cfg), Stop,
// Act(seq, target, input), SyncVar(var, value). Each is carried as an
// Envelope's Message with Kind=KindControl.

type resumeMsg struct{}

type configureMsg struct {
	handlerCtor *kvalue.Proc
	args        []kvalue.Value
}

type stopMsg struct{}

// actMsg is the child's initial computation for `act` (spec.md §4.5):
// body/env are already captured with the parent's free-variable bindings;
// replyTo/requestID tell the child who to address its (possibly repeated)
// respond(...) calls to.
type actMsg struct {
	body      klvm.Inst
	env       *klvm.Env
	replyTo   *Actor
	requestID mailbox.RequestID
}

type syncVarMsg struct {
	v     *store.Var
	value any
}
