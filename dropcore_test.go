package lorasim

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDropOracleHardDrops(t *testing.T) {
	type testcase struct {
		name    string
		outcome Outcome
		setup   func(c *Counters)
		reason  DropReason
	}

	var testcases = []testcase{{
		name:    "low RSSI",
		outcome: Outcome{RSSI: -200, SNR: 5, Distance: 1},
		reason:  ReasonLowRSSI,
	}, {
		name:    "low SNR",
		outcome: Outcome{RSSI: -100, SNR: -100, Distance: 1},
		reason:  ReasonLowSNR,
	}, {
		name:    "out of range",
		outcome: Outcome{RSSI: -100, SNR: 5, Distance: 999},
		reason:  ReasonOutOfRange,
	}, {
		name:    "collision guard",
		outcome: Outcome{RSSI: -100, SNR: 5, Distance: 1},
		setup: func(c *Counters) {
			c.RecordDelivery(2, 1, 1000)
		},
		reason: ReasonCollision,
	}}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			counters := NewCounters()
			if tc.setup != nil {
				tc.setup(counters)
			}
			decision := DropOracle(1, 1, 7, tc.outcome, counters, 1002, fixedRNG{0})
			expect := DropDecision{Dropped: true, Reason: tc.reason}
			if diff := cmp.Diff(expect, decision); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestDropOracleAcceptsCleanFrame(t *testing.T) {
	counters := NewCounters()
	outcome := Outcome{RSSI: -100, SNR: 8, Distance: 1}
	decision := DropOracle(1, 2, 7, outcome, counters, 5000, fixedRNG{0.999})
	expect := DropDecision{Dropped: false, Reason: ReasonNone}
	if diff := cmp.Diff(expect, decision); diff != "" {
		t.Fatal(diff)
	}
}

func TestDropOracleDropsUnderHeavyLoad(t *testing.T) {
	counters := NewCounters()
	for i := 0; i < 11; i++ {
		counters.IncActive(7)
	}
	outcome := Outcome{RSSI: -100, SNR: 8, Distance: 1}

	decision := DropOracle(1, 2, 7, outcome, counters, 5000, fixedRNG{0.01})
	if !decision.Dropped {
		t.Fatal("expected a drop under heavy load with a low draw")
	}
}

func TestDropOracleStreakResetsOnDelivery(t *testing.T) {
	counters := NewCounters()
	counters.IncLossStreak(1, 2)
	counters.IncLossStreak(1, 2)
	if counters.LossStreak(1, 2) != 2 {
		t.Fatal("expected loss streak of 2")
	}
	counters.RecordDelivery(1, 2, 1000)
	if counters.LossStreak(1, 2) != 0 {
		t.Fatal("expected loss streak to reset after a successful delivery")
	}
}

func TestClamp(t *testing.T) {
	if clamp(-1, 0, 1) != 0 {
		t.Fatal("expected clamp to floor at lo")
	}
	if clamp(2, 0, 1) != 1 {
		t.Fatal("expected clamp to ceiling at hi")
	}
	if clamp(0.5, 0, 1) != 0.5 {
		t.Fatal("expected clamp to pass through in-range values")
	}
}
