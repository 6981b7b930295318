package lorasim

//
// Propagation model (spec section 4.1)
//
// All functions here are pure except for their three random draws (multipath
// fading on the RSSI side, independent fading on the SNR side, and delay
// jitter), which are
// taken from the caller-supplied [RNG] so that outcomes are reproducible
// under a fixed seed (spec section 8, property 4).
//

import "math"

// sfSensitivity is the minimum viable RSSI per spreading factor, dBm.
var sfSensitivity = map[int]float64{
	7: -123, 8: -126, 9: -129, 10: -132, 11: -134.5, 12: -137,
}

// sfSNRRange is the (min, max) SNR range per spreading factor, dB.
type snrRange struct{ min, max float64 }

var sfSNRRange = map[int]snrRange{
	7:  {-7.5, 10},
	8:  {-10, 9},
	9:  {-12.5, 8},
	10: {-15, 7},
	11: {-17.5, 6},
	12: {-20, 5},
}

// sfMaxRangeKM is the maximum range per spreading factor, km.
var sfMaxRangeKM = map[int]float64{
	7: 5, 8: 8, 9: 12, 10: 16, 11: 20, 12: 25,
}

const (
	bandwidthHz   = 125000.0
	noiseFigureDb = 6.0

	// minSF and maxSF bound the valid LoRa spreading factors; every map
	// above (sfSensitivity, sfSNRRange, sfMaxRangeKM) is keyed over this
	// range, and counters.go's concurrentBySF array has maxSF+1 slots.
	minSF = 7
	maxSF = 12
)

// Outcome is the result of running the propagation model for one
// sender/receiver pair and one frame's parameters.
type Outcome struct {
	RSSI      float64
	SNR       float64
	AirtimeMs float64
	DelayMs   float64
	Distance  float64
}

// ComputeOutcome runs the full propagation model of spec section 4.1 for a
// frame sent with the given meta between two locations, drawing its three
// independent random samples (multipath fading, SNR fading, delay jitter)
// from rng.
func ComputeOutcome(tx, rx Location, m txMeta, rng RNG) Outcome {
	d := tx.Distance(rx)
	sf := m.SF

	fspl := 32.45 + 20*log10(math.Max(d, 1e-6)) + 20*log10(m.Frequency)

	var envLoss float64
	if m.AQI > 50 {
		envLoss += math.Pow(float64(m.AQI-50)/50, 1.5) * 0.5 * d * (1 - 0.02*float64(sf-7))
	}
	envLoss += weatherLoss[m.Weather] * d
	obstacleLoss, known := defaultObstacleLoss[m.Obstacle]
	if !known {
		obstacleLoss = 0
	}
	envLoss += obstacleLoss * (1 - 0.025*float64(sf-7))
	if d > 1 {
		envLoss += math.Log(d+1) * 3 * (1 - 0.03*float64(sf-7))
	}

	fadingRange := 2.5 - 0.2*float64(sf-7)
	rssiFading := (rng.Float64()*2 - 1) * fadingRange

	if d < 0.01 {
		envLoss += 15 * (1 - d/0.01)
	}

	rssi := float64(m.TxPower) - (fspl + envLoss) + rssiFading

	noiseFloor := -174 + 10*log10(bandwidthHz) + noiseFigureDb
	urban := 1.0
	if d < 5 {
		urban = 3 - 0.4*d
	}
	effectiveNoise := noiseFloor + urban

	processingGain := 10 * log10(math.Pow(2, float64(sf)))
	decay := (0.45 - 0.025*float64(sf-7)) * d

	snrFading := (rng.Float64()*2 - 1) * fadingRange

	snr := rssi - effectiveNoise + 0.5*processingGain - decay + snrFading
	if r, ok := sfSNRRange[sf]; ok && snr > r.max {
		snr = r.max
	}

	airtimeMs := computeAirtimeMs(sf, m.CodingRate, m.Preamble, m.PayloadBytes)
	delayMs := computeDelayMs(sf, d, m.Weather, m.Obstacle, snr, airtimeMs, rng)

	return Outcome{
		RSSI:      rssi,
		SNR:       snr,
		AirtimeMs: airtimeMs,
		DelayMs:   delayMs,
		Distance:  d,
	}
}

// computeAirtimeMs implements the Semtech time-on-air formula (spec
// section 4.1).
func computeAirtimeMs(sf, codingRate, preamble, payloadBytes int) float64 {
	tSym := math.Pow(2, float64(sf)) / bandwidthHz

	de := 0.0
	if sf >= 11 {
		de = 1
	}
	const ih = 0

	numer := 8*float64(payloadBytes) - 4*float64(sf) + 28 + 16 - 20*ih
	denom := 4 * (float64(sf) - 2*de)
	nPayload := 8 + math.Max(math.Ceil(numer/denom)*float64(codingRate+4), 0)

	return (float64(preamble) + 4.25 + nPayload) * tSym * 1000
}

// computeDelayMs implements the delay formula of spec section 4.1/4.5.
func computeDelayMs(sf int, d float64, weather, obstacle string, snr, airtimeMs float64, rng RNG) float64 {
	r := sfSNRRange[sf]
	const maxMs = 30.0
	const k = 1.5
	mid := r.min + (r.max-r.min)/3
	snrPenalty := maxMs / (1 + math.Exp(k*(snr-mid)))

	wf := weatherLoss[weather]
	obstacleLoss, known := defaultObstacleLoss[obstacle]
	if !known {
		obstacleLoss = 0
	}
	envDelay := wf*d*5 + obstacleLoss*0.5

	hwDelay := (2 + 1.5*float64(sf-7)) * (1 + 0.05*wf + 0.01*obstacleLoss)

	jitterRange := 3 - 0.5
	jitter := (0.5 + rng.Float64()*jitterRange) * (float64(sf) / 7)

	return airtimeMs + snrPenalty + envDelay + hwDelay + jitter
}

func log10(v float64) float64 {
	return math.Log10(v)
}
