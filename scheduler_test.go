package lorasim

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/bassosimone/lorasim/internal"
)

func TestSchedulerDeliversInDeadlineOrder(t *testing.T) {
	logger := internal.NewNullLogger()
	counters := NewCounters()
	registry := NewRegistry()

	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	registry.Register(1, Location{}, serverConn)

	sched := NewScheduler(logger, counters, registry, nil, nil)

	// schedule the "later" frame first and the "sooner" frame second; we
	// expect delivery in deadline order, not submission order.
	sched.Schedule(2, 1, 7, 200, rxFrame{Type: "rx", Data: "later"})
	sched.Schedule(3, 1, 7, 20, rxFrame{Type: "rx", Data: "sooner"})

	reader := bufio.NewReader(clientConn)

	readOne := func() string {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			t.Fatalf("ReadBytes: %v", err)
		}
		var f rxFrame
		if err := json.Unmarshal(line, &f); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		return f.Data
	}

	clientConn.SetReadDeadline(time.Now().Add(5 * time.Second))

	first := readOne()
	second := readOne()

	if first != "sooner" || second != "later" {
		t.Fatalf("expected delivery order [sooner, later], got [%s, %s]", first, second)
	}
}

func TestSchedulerPeerGoneDropsSilently(t *testing.T) {
	logger := internal.NewNullLogger()
	counters := NewCounters()
	registry := NewRegistry()

	before := counters.ActiveTransmissions()
	counters.IncActive(7)

	sched := NewScheduler(logger, counters, registry, nil, nil)
	sched.Schedule(1, 99, 7, 1, rxFrame{Type: "rx", Data: "x"})

	time.Sleep(50 * time.Millisecond)

	if counters.ActiveTransmissions() != before {
		t.Fatalf("expected active count to return to baseline %d, got %d", before, counters.ActiveTransmissions())
	}
}
