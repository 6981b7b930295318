package lorasim

//
// Node registry (spec section 4.3), grounded on router.go's
// table map[string]*RouterPort pattern in the teacher, upgraded from a
// plain sync.Mutex to a sync.RWMutex since lookups vastly outnumber
// register/remove in this system (spec section 5): lookups share the read
// lock, register/remove take the write lock. sync.RWMutex is not
// reader-preferring: a waiting writer blocks new readers.
//

import (
	"net"
	"sync"
)

// NodeRecord is one entry in the [Registry].
type NodeRecord struct {
	ID       NodeID
	Location Location
	Conn     net.Conn
}

// Registry maps node ids to their current connection and location. The
// zero value is invalid; use [NewRegistry].
type Registry struct {
	mu    sync.RWMutex
	table map[NodeID]*NodeRecord
}

// NewRegistry creates an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{
		table: map[NodeID]*NodeRecord{},
	}
}

// Register inserts or replaces the record for id. If a prior record
// exists with a different connection, that connection is closed once the
// record has been replaced (spec section 3's
// "a re-register replaces the prior record and must close the previous
// connection").
func (r *Registry) Register(id NodeID, loc Location, conn net.Conn) {
	r.mu.Lock()
	prior := r.table[id]
	r.table[id] = &NodeRecord{ID: id, Location: loc, Conn: conn}
	r.mu.Unlock()

	if prior != nil && prior.Conn != conn {
		_ = prior.Conn.Close()
	}
}

// Lookup returns the record for id, or (nil, false) if unknown.
func (r *Registry) Lookup(id NodeID) (*NodeRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.table[id]
	return rec, ok
}

// ListExcept returns every registered record except id, for broadcast
// fan-out (spec section 4.4).
func (r *Registry) ListExcept(id NodeID) []*NodeRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*NodeRecord, 0, len(r.table))
	for nid, rec := range r.table {
		if nid != id {
			out = append(out, rec)
		}
	}
	return out
}

// Remove deletes the record for id, if present. Idempotent (spec section 4.3).
func (r *Registry) Remove(id NodeID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.table, id)
}

// RemoveIfCurrent deletes the record for id only if its connection still
// matches conn, avoiding a race where a reader goroutine for a since-replaced
// connection removes the newer record on its way out.
func (r *Registry) RemoveIfCurrent(id NodeID, conn net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.table[id]; ok && rec.Conn == conn {
		delete(r.table, id)
	}
}
