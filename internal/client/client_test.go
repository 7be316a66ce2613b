package client_test

import (
	"testing"
	"time"

	"slug/internal/client"
	"slug/internal/klvm"
	"slug/internal/kvalue"
)

// echoHandlerCtor builds a handler constructor that, once applied, yields a
// handler procedure responding with whatever message it receives — the
// simplest possible request/response actor, used to exercise
// ActorBuilder/RequestClient end to end (spec.md §6).
func echoHandlerCtor() *kvalue.Proc {
	handlerDef := &klvm.ProcDef{
		Name:   "echo",
		Params: []string{"next"},
		Body:   &klvm.RespondInst{Value: klvm.Ident("next")},
	}
	handlerProc := &kvalue.Proc{Name: "echo", Def: handlerDef, Env: klvm.NewRootEnv(), Arity: 1}

	return &kvalue.Proc{
		Name:  "echoCtor",
		Arity: 0,
		Native: func(args []kvalue.Value) (kvalue.Value, error) {
			return handlerProc, nil
		},
	}
}

// doublingHandlerCtor builds a handler that responds with its integer
// argument doubled, via an ordinary kernel Arith instruction rather than an
// echo, so the test also exercises Bind/Arith/Respond wired through a real
// actor turn (not just pass-through).
func doublingHandlerCtor() *kvalue.Proc {
	handlerDef := &klvm.ProcDef{
		Name:   "double",
		Params: []string{"next"},
		Body: &klvm.DeclareVar{
			Name: "doubled",
			Body: &klvm.Seq{Stmts: []klvm.Inst{
				&klvm.Arith{Op: klvm.OpAdd, Target: klvm.Ident("doubled"), A: klvm.Ident("next"), B: klvm.Ident("next")},
				&klvm.RespondInst{Value: klvm.Ident("doubled")},
			}},
		},
	}
	handlerProc := &kvalue.Proc{Name: "double", Def: handlerDef, Env: klvm.NewRootEnv(), Arity: 1}

	return &kvalue.Proc{
		Name:  "doubleCtor",
		Arity: 0,
		Native: func(args []kvalue.Value) (kvalue.Value, error) {
			return handlerProc, nil
		},
	}
}

func TestRequestClientEchoesResponse(t *testing.T) {
	sys := client.NewActorSystem(2)
	defer sys.Shutdown()

	target, err := client.NewActorBuilder(sys).SetHandlerCtor(echoHandlerCtor()).Spawn()
	if err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	req := client.NewRequestClient(sys.Build())
	got, ok := req.SendAndAwaitResponse(target, kvalue.Str("hello"), 2*time.Second)
	if !ok {
		t.Fatalf("timed out awaiting response")
	}
	if got != kvalue.Str("hello") {
		t.Fatalf("expected echoed 'hello', got %#v", got)
	}
}

func TestRequestClientDoublesInteger(t *testing.T) {
	sys := client.NewActorSystemWithBudget(2, 1000)
	defer sys.Shutdown()

	target, err := client.NewActorBuilder(sys).SetHandlerCtor(doublingHandlerCtor()).Spawn()
	if err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	req := client.NewRequestClient(sys.Build())
	got, ok := req.SendAndAwaitResponse(target, kvalue.Int64(21), 2*time.Second)
	if !ok {
		t.Fatalf("timed out awaiting response")
	}
	if got != kvalue.Int64(42) {
		t.Fatalf("expected 42, got %#v", got)
	}
}

func TestActorBuilderRequiresHandlerCtor(t *testing.T) {
	sys := client.NewActorSystem(1)
	defer sys.Shutdown()

	_, err := client.NewActorBuilder(sys).Spawn()
	if err == nil {
		t.Fatalf("expected an error when no handler constructor was set")
	}
}

func TestRequestClientTimesOutWithoutResponse(t *testing.T) {
	sys := client.NewActorSystem(1)
	defer sys.Shutdown()

	// A handler that never responds — its body is a no-op kernel Seq — lets
	// the test exercise AwaitResponse's timeout path rather than its happy
	// path.
	silentDef := &klvm.ProcDef{Name: "silent", Params: []string{"next"}, Body: &klvm.Seq{}}
	silentProc := &kvalue.Proc{Name: "silent", Def: silentDef, Env: klvm.NewRootEnv(), Arity: 1}
	silentCtor := &kvalue.Proc{
		Name: "silentCtor", Arity: 0,
		Native: func(args []kvalue.Value) (kvalue.Value, error) { return silentProc, nil },
	}

	target, err := client.NewActorBuilder(sys).SetHandlerCtor(silentCtor).Spawn()
	if err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	req := client.NewRequestClient(sys.Build())
	_, ok := req.SendAndAwaitResponse(target, kvalue.Nothing, 100*time.Millisecond)
	if ok {
		t.Fatalf("expected a timeout since the handler never responds")
	}
}

func TestActorSystemModuleRegistrationAndLookup(t *testing.T) {
	sys := client.NewActorSystem(1)
	defer sys.Shutdown()

	rec := kvalue.NewRecord("math")
	rec.Set(kvalue.AtomFeature("pi"), kvalue.Int64(3))
	sys.AddDefaultModules().AddModule("app.math", rec)

	if _, ok := sys.Build().Lookup("nonexistent"); ok {
		t.Fatalf("expected no actor registered under an address nobody spawned")
	}

	target, err := client.NewActorBuilder(sys).SetAddress("named").SetHandlerCtor(echoHandlerCtor()).Spawn()
	if err != nil {
		t.Fatalf("spawn failed: %v", err)
	}
	found, ok := sys.Build().Lookup(target.Address)
	if !ok || found != target {
		t.Fatalf("expected Lookup to find the actor spawned at address %q", target.Address)
	}
}
