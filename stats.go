package lorasim

//
// Periodic delivery summary (SPEC_FULL.md section 4.1D), giving
// montanaflynn/stats a concrete home: batches of float64 samples in,
// percentiles out.
//

import (
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/montanaflynn/stats"
)

// statsCollector accumulates RSSI/SNR/delay samples from delivered frames
// and periodically logs a percentile summary.
type statsCollector struct {
	logger log.Interface

	mu      sync.Mutex
	rssi    []float64
	snr     []float64
	delayMs []float64

	stop chan struct{}
	done chan struct{}
}

// newStatsCollector creates a [statsCollector] and starts its background
// reporting loop. Call Close to stop it.
func newStatsCollector(logger log.Interface, interval time.Duration) *statsCollector {
	sc := &statsCollector{
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go sc.loop(interval)
	return sc
}

// Observe records one delivered frame's samples.
func (sc *statsCollector) Observe(rssi, snr, delayMs float64) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.rssi = append(sc.rssi, rssi)
	sc.snr = append(sc.snr, snr)
	sc.delayMs = append(sc.delayMs, delayMs)
}

func (sc *statsCollector) loop(interval time.Duration) {
	defer close(sc.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-sc.stop:
			return
		case <-ticker.C:
			sc.report()
		}
	}
}

func (sc *statsCollector) report() {
	sc.mu.Lock()
	rssi, snr, delay := sc.rssi, sc.snr, sc.delayMs
	sc.rssi, sc.snr, sc.delayMs = nil, nil, nil
	sc.mu.Unlock()

	if len(delay) == 0 {
		return
	}

	rssiP50, _ := stats.Percentile(rssi, 50)
	rssiP95, _ := stats.Percentile(rssi, 95)
	snrP50, _ := stats.Percentile(snr, 50)
	snrP95, _ := stats.Percentile(snr, 95)
	delayP50, _ := stats.Percentile(delay, 50)
	delayP95, _ := stats.Percentile(delay, 95)

	sc.logger.WithFields(log.Fields{
		"event":        "SUMMARY",
		"count":        len(delay),
		"rssi_p50":     rssiP50,
		"rssi_p95":     rssiP95,
		"snr_p50":      snrP50,
		"snr_p95":      snrP95,
		"delay_ms_p50": delayP50,
		"delay_ms_p95": delayP95,
	}).Info("lorasim: summary")
}

// Close stops the reporting loop.
func (sc *statsCollector) Close() error {
	close(sc.stop)
	<-sc.done
	return nil
}
