package mailbox

import "testing"

func TestPriorityOrdering(t *testing.T) {
	// Scenario: Enqueue in order notify N1, request R1, control C1.
	// Dequeue order: C1, N1, R1 (spec.md §8 scenario 6).
	mb := New()
	n1 := Envelope{Kind: KindNotify, Message: "N1"}
	r1 := Envelope{Kind: KindRequest, Message: "R1"}
	c1 := Envelope{Kind: KindControl, Message: "C1"}

	mb.Insert(n1)
	mb.Insert(r1)
	mb.Insert(c1)

	var order []string
	for mb.Len() > 0 {
		e, _ := mb.RemoveNext()
		order = append(order, e.Message.(string))
	}

	want := []string{"C1", "N1", "R1"}
	for i, w := range want {
		if order[i] != w {
			t.Fatalf("position %d: want %s, got %s (full order %v)", i, w, order[i], order)
		}
	}
}

func TestFIFOWithinEqualPriority(t *testing.T) {
	mb := New()
	mb.Insert(Envelope{Kind: KindNotify, Message: "first"})
	mb.Insert(Envelope{Kind: KindNotify, Message: "second"})
	mb.Insert(Envelope{Kind: KindRequest, Message: "third"})

	e1, _ := mb.RemoveNext()
	e2, _ := mb.RemoveNext()
	e3, _ := mb.RemoveNext()
	if e1.Message != "first" || e2.Message != "second" || e3.Message != "third" {
		t.Fatalf("expected FIFO within equal priority class, got %v %v %v", e1.Message, e2.Message, e3.Message)
	}
}

func TestPriorityInvariantAfterEveryInsert(t *testing.T) {
	mb := New()
	seq := []Envelope{
		{Kind: KindRequest, Message: 1},
		{Kind: KindControl, Message: 2},
		{Kind: KindResponse, Message: 3},
		{Kind: KindNotify, Message: 4},
		{Kind: KindControl, Message: 5},
	}
	for _, e := range seq {
		mb.Insert(e)
		assertNonDecreasingPriority(t, mb)
	}
}

func assertNonDecreasingPriority(t *testing.T, mb *Mailbox) {
	t.Helper()
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i := 1; i < len(mb.items); i++ {
		if mb.items[i].priority() < mb.items[i-1].priority() {
			t.Fatalf("priority invariant violated at index %d: %v", i, mb.items)
		}
	}
}

func TestSelectBatchGroupsContiguousResponses(t *testing.T) {
	mb := New()
	mb.Insert(Envelope{Kind: KindResponse, Message: "r1"})
	mb.Insert(Envelope{Kind: KindResponse, Message: "r2"})
	mb.Insert(Envelope{Kind: KindNotify, Message: "n1"})

	batch := mb.SelectBatch()
	if len(batch) != 2 {
		t.Fatalf("expected 2 contiguous responses in batch, got %d", len(batch))
	}
	if mb.Len() != 1 {
		t.Fatalf("expected notify to remain queued, mailbox len=%d", mb.Len())
	}
}

func TestSelectBatchSingleControlOrRequest(t *testing.T) {
	mb := New()
	mb.Insert(Envelope{Kind: KindRequest, Message: "req"})
	mb.Insert(Envelope{Kind: KindRequest, Message: "req2"})

	batch := mb.SelectBatch()
	if len(batch) != 1 {
		t.Fatalf("expected single-envelope batch for a request head, got %d", len(batch))
	}
}
