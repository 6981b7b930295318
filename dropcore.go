package lorasim

//
// Drop oracle (spec section 4.2).
//

import "math"

// DropReason is one of the modeled outcomes of spec section 7.
type DropReason string

const (
	ReasonNone         DropReason = ""
	ReasonLowRSSI      DropReason = "LOW_RSSI"
	ReasonLowSNR       DropReason = "LOW_SNR"
	ReasonOutOfRange   DropReason = "OUT_OF_RANGE"
	ReasonCollision    DropReason = "COLLISION"
	ReasonCongestion   DropReason = "CONGESTION"
	ReasonStreak       DropReason = "STREAK"
	ReasonSNRMargin    DropReason = "SNR_MARGIN"
	ReasonRSSIMargin   DropReason = "RSSI_MARGIN"
	ReasonInterference DropReason = "INTERFERENCE"
	ReasonPeerGone     DropReason = "PEER_GONE"
	ReasonNoRoute      DropReason = "NO_ROUTE"
	ReasonUnregistered DropReason = "UNREGISTERED"
)

const (
	maxInflight           = 10
	collisionGuardMs      = 5
	maxProbabilisticPDrop = 0.98
)

// DropDecision is the result of the drop oracle for one candidate delivery.
type DropDecision struct {
	Dropped bool
	Reason  DropReason
}

// DropOracle evaluates whether a frame should be dropped, given the
// propagation outcome and the broker's shared counters. nowUnixMs is the
// time of evaluation, used against the 5ms collision guard.
func DropOracle(
	sender, receiver NodeID,
	sf int,
	outcome Outcome,
	counters *Counters,
	nowUnixMs int64,
	rng RNG,
) DropDecision {
	// hard drops, evaluated in the order given by spec section 4.2
	if sens, ok := sfSensitivity[sf]; ok && outcome.RSSI < sens {
		return DropDecision{true, ReasonLowRSSI}
	}
	if r, ok := sfSNRRange[sf]; ok && outcome.SNR < r.min {
		return DropDecision{true, ReasonLowSNR}
	}
	if maxRange, ok := sfMaxRangeKM[sf]; ok && outcome.Distance > maxRange {
		return DropDecision{true, ReasonOutOfRange}
	}
	if last := counters.LastDeliveryAt(receiver); last != 0 && nowUnixMs-last < collisionGuardMs {
		return DropDecision{true, ReasonCollision}
	}

	active := counters.ActiveTransmissions()
	congestion := 0.0
	if active > maxInflight {
		x := float64(active-maxInflight) / maxInflight
		congestion = x * x
	}

	streak := counters.LossStreak(sender, receiver)
	pStreak := math.Min(0.5, 0.05*float64(streak))

	sfFactor := float64(sf - 5)
	r := sfSNRRange[sf]
	pSNR := clamp(math.Exp(-(outcome.SNR-r.min)/sfFactor), 0, 0.8)

	sens := sfSensitivity[sf]
	pRSSI := clamp((sens+3-outcome.RSSI)/6, 0, 0.6)

	concurrent := counters.ConcurrentBySF(sf)
	pInterference := math.Min(0.7, 0.1*float64(concurrent-1))
	if pInterference < 0 {
		pInterference = 0
	}

	components := []struct {
		reason DropReason
		value  float64
	}{
		{ReasonCongestion, congestion},
		{ReasonStreak, pStreak},
		{ReasonSNRMargin, pSNR},
		{ReasonRSSIMargin, pRSSI},
		{ReasonInterference, pInterference},
	}

	total := 0.0
	for _, c := range components {
		total += c.value
	}
	pDrop := math.Min(total, maxProbabilisticPDrop)

	if rng.Float64() >= pDrop {
		return DropDecision{false, ReasonNone}
	}

	best := components[0]
	for _, c := range components[1:] {
		if c.value > best.value {
			best = c
		}
	}
	return DropDecision{true, best.reason}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
