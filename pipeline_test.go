package lorasim

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/bassosimone/lorasim/internal"
)

func newTestBroker() *Broker {
	cfg := Config{Seed: 1}
	return NewBroker(cfg, internal.NewNullLogger())
}

func registerNode(t *testing.T, conn net.Conn, id NodeID, x, y float64) {
	t.Helper()
	frame := registerFrame{Type: "register", NodeID: id, Location: [2]float64{x, y}}
	raw, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	raw = append(raw, '\n')
	if _, err := conn.Write(raw); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestHandleConnRequiresRegisterBeforeTx(t *testing.T) {
	b := newTestBroker()

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		b.handleConn(serverConn)
		close(done)
	}()

	// send a tx frame before registering: it must be silently discarded,
	// not close the connection.
	tx := txFrame{Type: "tx", From: 1, Data: "hello"}
	raw, _ := json.Marshal(tx)
	raw = append(raw, '\n')
	if _, err := clientConn.Write(raw); err != nil {
		t.Fatalf("Write: %v", err)
	}

	registerNode(t, clientConn, 1, 0, 0)

	clientConn.Close()
	<-done

	if _, ok := b.registry.Lookup(1); ok {
		t.Fatal("expected node to be removed once its connection closed")
	}
}

func TestHandleConnUnknownFrameTypeIsIgnored(t *testing.T) {
	b := newTestBroker()

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		b.handleConn(serverConn)
		close(done)
	}()

	if _, err := clientConn.Write([]byte(`{"type":"ping"}` + "\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	registerNode(t, clientConn, 5, 1, 1)

	clientConn.Close()
	<-done
}

func TestHandleTxDeliversUnicastFrame(t *testing.T) {
	b := newTestBroker()

	senderServer, senderClient := net.Pipe()
	defer senderServer.Close()
	defer senderClient.Close()
	receiverServer, receiverClient := net.Pipe()
	defer receiverServer.Close()
	defer receiverClient.Close()

	go b.handleConn(senderServer)
	go b.handleConn(receiverServer)

	registerNode(t, senderClient, 1, 0, 0)
	registerNode(t, receiverClient, 2, 0.05, 0) // 50 meters away

	time.Sleep(20 * time.Millisecond) // let both registrations land

	tx := txFrame{
		Type: "tx",
		From: 1,
		Data: "hello",
		Meta: map[string]json.RawMessage{
			"destination": json.RawMessage(`2`),
			"sf":          json.RawMessage(`7`),
		},
	}
	raw, _ := json.Marshal(tx)
	raw = append(raw, '\n')
	if _, err := senderClient.Write(raw); err != nil {
		t.Fatalf("Write: %v", err)
	}

	receiverClient.SetReadDeadline(time.Now().Add(5 * time.Second))
	reader := bufio.NewReader(receiverClient)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}

	var got rxFrame
	if err := json.Unmarshal(line, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Data != "hello" {
		t.Fatalf("expected payload %q, got %q", "hello", got.Data)
	}
}

func TestHandleTxUnknownDestinationIsNoRoute(t *testing.T) {
	b := newTestBroker()

	senderServer, senderClient := net.Pipe()
	defer senderServer.Close()
	defer senderClient.Close()

	go b.handleConn(senderServer)
	registerNode(t, senderClient, 1, 0, 0)
	time.Sleep(20 * time.Millisecond)

	tx := txFrame{
		Type: "tx",
		From: 1,
		Data: "hello",
		Meta: map[string]json.RawMessage{
			"destination": json.RawMessage(`999`),
		},
	}
	raw, _ := json.Marshal(tx)
	raw = append(raw, '\n')

	// must not panic or hang; there is nobody to deliver to.
	if _, err := senderClient.Write(raw); err != nil {
		t.Fatalf("Write: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
}
