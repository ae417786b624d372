package client

import (
	"sync"
	"sync/atomic"
)

// Dialog tracks the per-Call-ID state the client needs to build
// in-dialog requests (BYE, ACK) and to route inbound messages back to
// the right Call, per the data model's {Call-ID, local-tag, remote-tag}
// identity.
type Dialog struct {
	CallID     string
	LocalTag   string
	RemoteTag  string
	RemoteURI  string
	RemoteAddr string
	RemotePort int

	cseq atomic.Uint32
}

// NextCSeq returns the next outbound CSeq number for this dialog.
func (d *Dialog) NextCSeq() uint32 {
	return d.cseq.Add(1)
}

// dialogTable is the client's Call-ID -> Dialog map, guarded
// separately from the receive-path mutex since lookups here never
// block on the socket.
type dialogTable struct {
	mu   sync.RWMutex
	byID map[string]*Dialog
}

func newDialogTable() *dialogTable {
	return &dialogTable{byID: make(map[string]*Dialog)}
}

func (t *dialogTable) put(d *Dialog) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byID[d.CallID] = d
}

func (t *dialogTable) get(callID string) (*Dialog, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.byID[callID]
	return d, ok
}

func (t *dialogTable) remove(callID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byID, callID)
}

func (t *dialogTable) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}
