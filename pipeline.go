package lorasim

//
// Frame pipeline (spec section 4.4): one reader goroutine per connection,
// grounded on the teacher's dnsserver.go connection-handling worker, but
// reading newline-delimited JSON frames instead of DNS-over-TCP length
// prefixes.
//

import (
	"bufio"
	"encoding/json"
	"net"
	"time"
)

// maxFrameBytes bounds a single incoming line, guarding against an
// unbounded read from a misbehaving client (spec section 4.4 framing note).
const maxFrameBytes = 1 << 20

// handleConn owns one client connection end to end: it requires a register
// frame first, then dispatches tx frames until the connection closes.
func (b *Broker) handleConn(conn net.Conn) {
	logger := b.logger
	rng := b.rngFactory()

	var self NodeID
	var registered bool

	defer func() {
		_ = conn.Close()
		if registered {
			b.registry.RemoveIfCurrent(self, conn)
			logDisconnect(logger, self)
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxFrameBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var env wireEnvelope
		if err := json.Unmarshal(line, &env); err != nil {
			logger.WithError(err).Warn("lorasim: malformed frame")
			continue
		}

		switch env.Type {
		case "register":
			var rf registerFrame
			if err := json.Unmarshal(line, &rf); err != nil {
				logger.WithError(err).Warn("lorasim: malformed register frame")
				continue
			}
			self = rf.NodeID
			loc := Location{X: rf.Location[0], Y: rf.Location[1]}
			b.registry.Register(self, loc, conn)
			registered = true
			logRegister(logger, self, loc)

		case "tx":
			if !registered {
				logger.Warn("lorasim: tx frame before register, dropping")
				continue
			}
			var tf txFrame
			if err := json.Unmarshal(line, &tf); err != nil {
				logger.WithError(err).Warn("lorasim: malformed tx frame")
				continue
			}
			b.handleTx(self, tf, rng)

		default:
			logger.WithField("frame_type", env.Type).Warn("lorasim: unknown frame type")
		}
	}
}

// handleTx resolves a tx frame's recipients and runs each through the
// propagation model and drop oracle, scheduling accepted deliveries (spec
// section 4.4).
func (b *Broker) handleTx(sender NodeID, tf txFrame, rng RNG) {
	senderRec, ok := b.registry.Lookup(sender)
	if !ok {
		logDrop(b.logger, sender, sender, 0, ReasonUnregistered)
		return
	}

	meta := parseTxMeta(tf.Meta, len(tf.Data))

	if meta.SF < minSF || meta.SF > maxSF {
		b.logger.WithField("sf", meta.SF).Warn("lorasim: sf out of range, dropping frame")
		return
	}

	var recipients []*NodeRecord
	switch {
	case meta.Broadcast || meta.Destination == nil:
		recipients = b.registry.ListExcept(sender)
	default:
		rec, ok := b.registry.Lookup(*meta.Destination)
		if !ok {
			logDrop(b.logger, sender, *meta.Destination, meta.SF, ReasonNoRoute)
			return
		}
		recipients = []*NodeRecord{rec}
	}

	for _, rec := range recipients {
		b.deliverOne(sender, senderRec.Location, rec, meta, tf.Data, rng)
	}
}

// deliverOne runs the propagation model and drop oracle for one
// (sender, receiver) pair and, if accepted, hands the frame to the
// scheduler.
func (b *Broker) deliverOne(sender NodeID, senderLoc Location, rec *NodeRecord, meta txMeta, data string, rng RNG) {
	outcome := ComputeOutcome(senderLoc, rec.Location, meta, rng)

	b.counters.IncActive(meta.SF)

	now := time.Now().UnixMilli()
	decision := DropOracle(sender, rec.ID, meta.SF, outcome, b.counters, now, rng)

	if decision.Dropped {
		b.counters.IncLossStreak(sender, rec.ID)
		logDrop(b.logger, sender, rec.ID, meta.SF, decision.Reason)
		b.counters.DecActive(meta.SF)
		return
	}

	frame := rxFrame{
		Type: "rx",
		Data: data,
		RSSI: outcome.RSSI,
		SNR:  outcome.SNR,
		Meta: meta.toWireMeta(sender),
	}
	b.scheduler.Schedule(sender, rec.ID, meta.SF, outcome.DelayMs, frame)
}
