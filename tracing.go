package lorasim

//
// Optional delivery trace (spec SPEC_FULL.md section 4.1D), adapted from
// the teacher's pcap.go PCAPDumper: a bounded channel feeding a background
// goroutine that writes pcapgo records, drop-if-full so a slow disk never
// blocks delivery.
//

import (
	"context"
	"net"
	"os"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// FrameTraceDumper records delivered rx frame payloads to a pcap file as
// synthetic UDP/IPv4 packets, so a session's deliveries can be inspected
// with standard packet-capture tooling. This is diagnostic only: it never
// participates in propagation, drop, or scheduling decisions.
type FrameTraceDumper struct {
	logger    log.Interface
	cancel    context.CancelFunc
	closeOnce sync.Once
	joined    chan any
	pich      chan *tracePacket
}

type tracePacket struct {
	sender, receiver NodeID
	payload          []byte
}

// NewFrameTraceDumper creates a [FrameTraceDumper] writing to filename.
// Call [FrameTraceDumper.Close] to stop the background goroutine.
func NewFrameTraceDumper(filename string, logger log.Interface) *FrameTraceDumper {
	const manyPackets = 4096
	ctx, cancel := context.WithCancel(context.Background())
	td := &FrameTraceDumper{
		logger: logger,
		cancel: cancel,
		joined: make(chan any),
		pich:   make(chan *tracePacket, manyPackets),
	}
	go td.loop(ctx, filename)
	return td
}

// Capture records one delivered frame's payload.
func (td *FrameTraceDumper) Capture(sender, receiver NodeID, payload []byte) {
	snapshot := append([]byte{}, payload...)
	select {
	case td.pich <- &tracePacket{sender: sender, receiver: receiver, payload: snapshot}:
	default:
		// drop from the trace; diagnostic-only, never blocks delivery
	}
}

func (td *FrameTraceDumper) loop(ctx context.Context, filename string) {
	defer close(td.joined)

	filep, err := os.Create(filename)
	if err != nil {
		td.logger.WithError(err).Warn("lorasim: trace: os.Create")
		return
	}
	defer filep.Close()

	w := pcapgo.NewWriter(filep)
	const snapLen = 65535
	if err := w.WriteFileHeader(snapLen, layers.LinkTypeIPv4); err != nil {
		td.logger.WithError(err).Warn("lorasim: trace: WriteFileHeader")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case p := <-td.pich:
			td.writeEntry(w, p)
		}
	}
}

func (td *FrameTraceDumper) writeEntry(w *pcapgo.Writer, p *tracePacket) {
	raw, err := serializeAsUDP(p.sender, p.receiver, p.payload)
	if err != nil {
		td.logger.WithError(err).Warn("lorasim: trace: serialize")
		return
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     time.Now(),
		CaptureLength: len(raw),
		Length:        len(raw),
	}
	if err := w.WritePacket(ci, raw); err != nil {
		td.logger.WithError(err).Warn("lorasim: trace: WritePacket")
	}
}

// serializeAsUDP wraps payload in a synthetic IPv4/UDP packet from sender to
// receiver, mapping node ids into the 10.0.0.0/8 private range so the trace
// is viewable in Wireshark/tcpdump without any other context.
func serializeAsUDP(sender, receiver NodeID, payload []byte) ([]byte, error) {
	srcIP := nodeIDToIP(sender)
	dstIP := nodeIDToIP(receiver)

	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    srcIP,
		DstIP:    dstIP,
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(7000 + uint16(sender%1000)),
		DstPort: layers.UDPPort(7000 + uint16(receiver%1000)),
	}
	_ = udp.SetNetworkLayerForChecksum(ip)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ip, udp, gopacket.Payload(payload)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func nodeIDToIP(id NodeID) net.IP {
	hi := byte((id / 256) % 256)
	lo := byte(id % 256)
	return net.IPv4(10, 0, hi, lo)
}

// Close stops the background writer and closes the trace file. Packets
// still queued by Capture at that point are not written.
func (td *FrameTraceDumper) Close() error {
	td.closeOnce.Do(func() {
		td.cancel()
		<-td.joined
	})
	return nil
}
