package lorasim

//
// Broker (spec section 2/5), wiring together the registry, counters,
// scheduler and RNG factory into the single value Design Note section 9
// calls for. The accept-then-spawn-one-goroutine-per-connection shape is
// grounded on the teacher's dnsserver.go NewDNSServer/dnsServerWorker.
//

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/apex/log"
)

// Broker is a virtual RF medium server. The zero value is invalid; use
// [NewBroker].
type Broker struct {
	logger     log.Interface
	cfg        Config
	rngFactory func() RNG
	registry   *Registry
	counters   *Counters
	scheduler  *Scheduler
	trace      *FrameTraceDumper
	stats      *statsCollector

	wg sync.WaitGroup
}

// NewBroker constructs a [Broker] from cfg. If cfg.TraceFile is set, a
// [FrameTraceDumper] is created; if cfg.StatsInterval is non-zero, a
// periodic summary logger is started. Call [Broker.Close] to release them.
func NewBroker(cfg Config, logger log.Interface) *Broker {
	registry := NewRegistry()
	counters := NewCounters()

	var trace *FrameTraceDumper
	if cfg.TraceFile != "" {
		trace = NewFrameTraceDumper(cfg.TraceFile, logger)
	}

	var sc *statsCollector
	if cfg.StatsInterval > 0 {
		sc = newStatsCollector(logger, time.Duration(cfg.StatsInterval)*time.Second)
	}

	scheduler := NewScheduler(logger, counters, registry, trace, sc)

	return &Broker{
		logger:     logger,
		cfg:        cfg,
		rngFactory: NewRNGFactory(cfg.Seed),
		registry:   registry,
		counters:   counters,
		scheduler:  scheduler,
		trace:      trace,
		stats:      sc,
	}
}

// Serve accepts connections on listener until ctx is canceled or Accept
// returns an error. Each connection is served by its own
// reader goroutine (spec section 5: "one logical task per connection for
// reading").
func (b *Broker) Serve(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				b.wg.Wait()
				return nil
			default:
				return err
			}
		}
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.handleConn(conn)
		}()
	}
}

// Close releases the broker's background resources (trace dumper, stats
// collector). It does not close any registered node connections.
func (b *Broker) Close() error {
	if b.trace != nil {
		_ = b.trace.Close()
	}
	if b.stats != nil {
		_ = b.stats.Close()
	}
	return nil
}
