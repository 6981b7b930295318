package lorasim

import (
	"net"
	"testing"
)

func TestRegistryRegisterReplacesAndClosesPriorConnection(t *testing.T) {
	r := NewRegistry()

	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	r.Register(1, Location{X: 0, Y: 0}, a)

	closed := make(chan struct{})
	go func() {
		buf := make([]byte, 1)
		_, err := a.Read(buf)
		if err != nil {
			close(closed)
		}
	}()

	c, d := net.Pipe()
	defer c.Close()
	defer d.Close()

	r.Register(1, Location{X: 1, Y: 1}, c)

	<-closed

	rec, ok := r.Lookup(1)
	if !ok {
		t.Fatal("expected node 1 to be registered")
	}
	if rec.Conn != c {
		t.Fatal("expected the new connection to be current")
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Lookup(42); ok {
		t.Fatal("expected lookup of unknown node to fail")
	}
}

func TestRegistryListExcept(t *testing.T) {
	r := NewRegistry()

	conns := make([]net.Conn, 0, 3)
	for i := 0; i < 3; i++ {
		a, b := net.Pipe()
		defer a.Close()
		defer b.Close()
		conns = append(conns, a)
		r.Register(NodeID(i), Location{}, a)
	}
	_ = conns

	others := r.ListExcept(1)
	if len(others) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(others))
	}
	for _, rec := range others {
		if rec.ID == 1 {
			t.Fatal("ListExcept must not include the excluded id")
		}
	}
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Remove(999) // never registered; must not panic

	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	r.Register(1, Location{}, a)
	r.Remove(1)
	r.Remove(1)

	if _, ok := r.Lookup(1); ok {
		t.Fatal("expected node 1 to be gone after Remove")
	}
}

func TestRegistryRemoveIfCurrentRace(t *testing.T) {
	r := NewRegistry()

	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	r.Register(1, Location{}, a)

	c, d := net.Pipe()
	defer c.Close()
	defer d.Close()
	r.Register(1, Location{}, c) // replaces a with c

	// a stale goroutine for the old connection must not remove the new one
	r.RemoveIfCurrent(1, a)

	rec, ok := r.Lookup(1)
	if !ok {
		t.Fatal("expected node 1 to still be registered")
	}
	if rec.Conn != c {
		t.Fatal("expected the current connection to remain c")
	}

	r.RemoveIfCurrent(1, c)
	if _, ok := r.Lookup(1); ok {
		t.Fatal("expected node 1 to be removed once the current connection matches")
	}
}
