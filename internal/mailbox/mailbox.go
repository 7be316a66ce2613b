package mailbox

import "sync"

// Mailbox is a priority-ordered queue of envelopes local to one actor.
// Insertion rule (spec.md §4.3): append to tail, then bubble-swap toward
// the head while the new envelope has strictly higher priority (lower
// priority number) than its immediate predecessor. This keeps higher
// priority envelopes ahead of lower-priority predecessors while preserving
// FIFO within equal priority — the loop only swaps on strictly-less, never
// on ties, so two envelopes enqueued at the same priority never trade
// places.
type Mailbox struct {
	mu    sync.Mutex
	items []Envelope
}

func New() *Mailbox {
	return &Mailbox{}
}

// Insert appends e and bubbles it toward the head past any strictly
// lower-priority (higher number) predecessor.
func (m *Mailbox) Insert(e Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = append(m.items, e)
	i := len(m.items) - 1
	for i > 0 && m.items[i].priority() < m.items[i-1].priority() {
		m.items[i], m.items[i-1] = m.items[i-1], m.items[i]
		i--
	}
}

// Len reports the number of queued envelopes.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// PeekNext returns the head envelope without removing it.
func (m *Mailbox) PeekNext() (Envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.items) == 0 {
		return Envelope{}, false
	}
	return m.items[0], true
}

// RemoveNext removes and returns the head envelope.
func (m *Mailbox) RemoveNext() (Envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.items) == 0 {
		return Envelope{}, false
	}
	e := m.items[0]
	m.items = m.items[1:]
	return e, true
}

// SelectBatch implements the turn-structure batch-selection rule (spec.md
// §4.3/§4.4): if the head is a control or notify/request, return a single
// envelope. If the head is a response, pull the contiguous run of responses
// from the head so the caller can dispatch them together (the response
// fixpoint, spec.md §4.4).
func (m *Mailbox) SelectBatch() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) == 0 {
		return nil
	}
	head := m.items[0]
	if head.Kind != KindResponse {
		m.items = m.items[1:]
		return []Envelope{head}
	}

	n := 0
	for n < len(m.items) && m.items[n].Kind == KindResponse {
		n++
	}
	batch := append([]Envelope(nil), m.items[:n]...)
	m.items = m.items[n:]
	return batch
}
