package lorasim

//
// Delivery scheduler (spec section 4.5), grounded on link.go's
// linkForwardingState/linkForward: a ticker-driven in-flight queue that
// reschedules itself to wake exactly when the earliest deadline elapses.
// One [receiverScheduler] goroutine owns a receiver's connection write
// side for as long as the receiver stays registered, which is what gives
// us the per-receiver write ordering spec section 5 requires: only one
// goroutine ever calls Write on that net.Conn.
//

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/apex/log"
)

// delivery is one decided-for-delivery frame waiting out its delay.
type delivery struct {
	deadline time.Time
	delayMs  float64
	receiver NodeID
	sender   NodeID
	sf       int
	frame    rxFrame
}

// Scheduler owns one [receiverScheduler] per receiver that has ever had a
// frame scheduled to it, created lazily on first use.
type Scheduler struct {
	logger   log.Interface
	counters *Counters
	registry *Registry
	trace    *FrameTraceDumper
	stats    *statsCollector

	mu    sync.Mutex
	recvs map[NodeID]*receiverScheduler
}

// NewScheduler constructs a [Scheduler].
func NewScheduler(logger log.Interface, counters *Counters, registry *Registry, trace *FrameTraceDumper, stats *statsCollector) *Scheduler {
	return &Scheduler{
		logger:   logger,
		counters: counters,
		registry: registry,
		trace:    trace,
		stats:    stats,
		recvs:    map[NodeID]*receiverScheduler{},
	}
}

// Schedule submits a decided-for-delivery frame. The frame is written to
// the receiver's connection after delayMs elapses; deliveries to the same
// receiver are serialized in the order their delays elapse, not the order
// Schedule was called (spec section 4.5).
func (s *Scheduler) Schedule(sender, receiver NodeID, sf int, delayMs float64, frame rxFrame) {
	d := delivery{
		deadline: time.Now().Add(time.Duration(delayMs * float64(time.Millisecond))),
		delayMs:  delayMs,
		receiver: receiver,
		sender:   sender,
		sf:       sf,
		frame:    frame,
	}
	s.receiverFor(receiver).enqueue(d)
}

// receiverFor returns (creating if needed) the [receiverScheduler] for id.
func (s *Scheduler) receiverFor(id NodeID) *receiverScheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.recvs[id]
	if !ok {
		rs = newReceiverScheduler(id, s.logger, s.counters, s.registry, s.trace, s.stats)
		s.recvs[id] = rs
	}
	return rs
}

// receiverScheduler is the per-receiver delivery queue, modeled directly on
// link.go's linkForwardingState.
type receiverScheduler struct {
	id       NodeID
	logger   log.Interface
	counters *Counters
	registry *Registry
	trace    *FrameTraceDumper
	stats    *statsCollector

	incoming chan delivery
}

func newReceiverScheduler(id NodeID, logger log.Interface, counters *Counters, registry *Registry, trace *FrameTraceDumper, stats *statsCollector) *receiverScheduler {
	rs := &receiverScheduler{
		id:       id,
		logger:   logger,
		counters: counters,
		registry: registry,
		trace:    trace,
		stats:    stats,
		incoming: make(chan delivery, 64),
	}
	go rs.loop()
	return rs
}

func (rs *receiverScheduler) enqueue(d delivery) {
	rs.incoming <- d
}

// loop is the receiverScheduler's single goroutine: it holds an in-flight
// queue sorted by deadline (deliveries for one receiver are enqueued by
// senders in no particular cross-sender order, but a ticker reset to the
// earliest deadline ensures each is written out no earlier than its own
// deadline, and strictly in deadline order, per spec section 4.5).
func (rs *receiverScheduler) loop() {
	const idleTick = 100 * time.Millisecond
	ticker := time.NewTicker(idleTick)
	defer ticker.Stop()

	var pending []delivery

	for {
		select {
		case d := <-rs.incoming:
			pending = append(pending, d)
			sortDeliveriesByDeadline(pending)
			rearm(ticker, pending[0].deadline)

		case <-ticker.C:
			for len(pending) > 0 {
				front := pending[0]
				remaining := time.Until(front.deadline)
				if remaining > 0 {
					rearm(ticker, front.deadline)
					break
				}
				pending = pending[1:]
				rs.deliver(front)
			}
			if len(pending) == 0 {
				ticker.Reset(idleTick)
			}
		}
	}
}

// deliver writes one decided frame to its receiver's current connection and
// applies the success/failure bookkeeping of spec section 4.5.
func (rs *receiverScheduler) deliver(d delivery) {
	defer rs.counters.DecActive(d.sf)

	rec, ok := rs.registry.Lookup(d.receiver)
	if !ok {
		logDrop(rs.logger, d.sender, d.receiver, d.sf, ReasonPeerGone)
		return
	}

	payload, err := json.Marshal(d.frame)
	if err != nil {
		rs.logger.WithError(err).Warn("lorasim: marshal rx frame")
		return
	}
	payload = append(payload, '\n')

	_ = rec.Conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, writeErr := rec.Conn.Write(payload)
	if writeErr != nil {
		logDrop(rs.logger, d.sender, d.receiver, d.sf, ReasonPeerGone)
		rs.registry.RemoveIfCurrent(d.receiver, rec.Conn)
		return
	}

	now := time.Now().UnixMilli()
	rs.counters.RecordDelivery(d.sender, d.receiver, now)
	if rs.trace != nil {
		rs.trace.Capture(d.sender, d.receiver, []byte(d.frame.Data))
	}
	if rs.stats != nil {
		rs.stats.Observe(d.frame.RSSI, d.frame.SNR, d.delayMs)
	}
	logDelivered(rs.logger, d.sender, d.receiver, d.sf, d.frame.RSSI, d.frame.SNR, d.delayMs)
}

func sortDeliveriesByDeadline(ds []delivery) {
	for i := 1; i < len(ds); i++ {
		j := i
		for j > 0 && ds[j-1].deadline.After(ds[j].deadline) {
			ds[j-1], ds[j] = ds[j], ds[j-1]
			j--
		}
	}
}

func rearm(t *time.Ticker, deadline time.Time) {
	d := time.Until(deadline)
	if d <= 0 {
		d = time.Microsecond
	}
	t.Reset(d)
}
