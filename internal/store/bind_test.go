package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slug/internal/kvalue"
)

func TestBindAtMostOnce(t *testing.T) {
	v := NewVar("X")
	require.NoError(t, Bind(v, kvalue.Int64(1)), "first bind")
	assert.Equal(t, kvalue.Int64(1), ResolveValueOrVar(v))

	// Re-binding to the same value is a structural unify (legal, no-op);
	// re-binding to a conflicting value is a UnificationError.
	assert.Error(t, Bind(v, kvalue.Int64(2)), "expected UnificationError binding conflicting value")
}

func TestCallbackExactness(t *testing.T) {
	v := NewVar("X")
	var fired int
	var lastVal any
	v.AddCallback(func(_ *Var, value any) {
		fired++
		lastVal = value
	})
	v.AddCallback(func(_ *Var, value any) {
		fired++
	})
	require.NoError(t, Bind(v, kvalue.Int64(42)))
	assert.Equal(t, 2, fired, "expected both callbacks to fire")
	assert.Equal(t, kvalue.Int64(42), lastVal)
}

func TestUnifyTwoUnboundVarsShareBinding(t *testing.T) {
	a := NewVar("A")
	b := NewVar("B")
	var fired bool
	b.AddCallback(func(_ *Var, value any) { fired = true })

	require.NoError(t, Bind(a, b), "union")
	require.NoError(t, Bind(a, kvalue.Int64(7)), "bind after union")
	assert.True(t, fired, "expected B's callback to fire once A's equivalence class bound")
	assert.Equal(t, kvalue.Int64(7), ResolveValueOrVar(b), "expected B to resolve via shared representative")
}

func TestCheckCompleteSuspendsOnBarrier(t *testing.T) {
	rec := kvalue.NewRecord("point")
	rec.Set(kvalue.AtomFeature("x"), kvalue.Int64(1))
	barrier := NewVar("Y")
	rec.Set(kvalue.AtomFeature("y"), barrier)

	_, err := CheckComplete(rec)
	var wait *Wait
	require.ErrorAs(t, err, &wait)
	assert.Equal(t, barrier, wait.Barrier)

	require.NoError(t, Bind(barrier, kvalue.Int64(2)))
	_, err = CheckComplete(rec)
	assert.NoError(t, err, "expected completeness after barrier bound")
}

func TestUnifyRecordPartialFieldFillsIn(t *testing.T) {
	// {a: 1, b: X} unified with {a: 1, b: 2} binds X <- 2.
	x := NewVar("X")
	left := kvalue.NewRecord("r")
	left.Set(kvalue.AtomFeature("a"), kvalue.Int64(1))
	left.Set(kvalue.AtomFeature("b"), x)

	right := kvalue.NewRecord("r")
	right.Set(kvalue.AtomFeature("a"), kvalue.Int64(1))
	right.Set(kvalue.AtomFeature("b"), kvalue.Int64(2))

	_, err := Unify(left, right)
	require.NoError(t, err)
	assert.Equal(t, kvalue.Int64(2), ResolveValueOrVar(x))
}

func TestUnifyRecordMismatchRaisesUnificationError(t *testing.T) {
	// {a: 1} unified with {a: 2} produces a UnificationError.
	left := kvalue.NewRecord("r")
	left.Set(kvalue.AtomFeature("a"), kvalue.Int64(1))
	right := kvalue.NewRecord("r")
	right.Set(kvalue.AtomFeature("a"), kvalue.Int64(2))

	_, err := Unify(left, right)
	var uerr *UnificationError
	assert.ErrorAs(t, err, &uerr)
}

func TestHaltMonotonicityAnalogueCompletenessPreserved(t *testing.T) {
	// Completeness preservation: once v is Complete, binding some other Var
	// must not un-complete it.
	v := NewVar("X")
	require.NoError(t, Bind(v, kvalue.Int64(1)))
	_, err := CheckComplete(v)
	require.NoError(t, err, "expected complete")

	other := NewVar("Y")
	require.NoError(t, Bind(other, kvalue.Int64(2)))
	_, err = CheckComplete(v)
	assert.NoError(t, err, "expected v to remain complete after unrelated bind")
}
