package lorasim

//
// Wire frame shapes (spec section 3/6)
//

import (
	"encoding/json"
	"errors"
	"math"
)

// NodeID identifies a registered node.
type NodeID int

// Location is a node's position in the 2-D kilometer plane.
type Location struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance in km between two locations.
func (l Location) Distance(other Location) float64 {
	dx := l.X - other.X
	dy := l.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// wireEnvelope is the common envelope every frame carries on the wire.
type wireEnvelope struct {
	Type string `json:"type"`
}

// ErrUnknownFrameType indicates a frame with an unrecognized "type" field.
var ErrUnknownFrameType = errors.New("lorasim: unknown frame type")

// registerFrame is the "register" client->server frame.
type registerFrame struct {
	Type     string     `json:"type"`
	NodeID   NodeID     `json:"node_id"`
	Location [2]float64 `json:"location"`
}

// txFrame is the "tx" client->server frame.
type txFrame struct {
	Type string                     `json:"type"`
	From NodeID                     `json:"from"`
	Data string                     `json:"data"`
	Meta map[string]json.RawMessage `json:"meta"`
}

// rxFrame is the "rx" server->client frame.
type rxFrame struct {
	Type string         `json:"type"`
	Data string         `json:"data"`
	RSSI float64        `json:"rssi"`
	SNR  float64        `json:"snr"`
	Meta map[string]any `json:"meta"`
}

// weatherLoss enumerates the recognized weather keys and their dB/km loss
// coefficient (spec section 4.1).
var weatherLoss = map[string]float64{
	"clear":         0,
	"fog":           0.02,
	"light-rain":    0.05,
	"moderate-rain": 0.10,
	"heavy-rain":    0.20,
}

// defaultObstacleLoss is the obstacle-loss table (dB). Unknown keys
// contribute 0, per spec section 4.1.
var defaultObstacleLoss = map[string]float64{
	"open":     0,
	"foliage":  3,
	"wall":     8,
	"building": 15,
	"urban":    10,
	"hill":     20,
}

// txMeta holds the fully-defaulted, parsed set of recognized meta options
// for one accepted "tx" frame (spec section 3 table).
type txMeta struct {
	Destination  *NodeID
	Broadcast    bool
	TxPower      int
	SF           int
	Frequency    float64
	AQI          int
	Weather      string
	Obstacle     string
	CodingRate   int
	Preamble     int
	PayloadBytes int
}

// parseTxMeta applies defaults from spec section 3 on top of the raw JSON
// map, distinguishing "absent" from "explicit value" by checking map key
// presence rather than relying on Go zero values (see SPEC_FULL.md section 3A).
func parseTxMeta(raw map[string]json.RawMessage, dataLen int) txMeta {
	m := txMeta{
		TxPower:      23,
		SF:           7,
		Frequency:    915.0,
		AQI:          50,
		Weather:      "clear",
		Obstacle:     "open",
		CodingRate:   1,
		Preamble:     8,
		PayloadBytes: dataLen,
	}
	if raw == nil {
		return m
	}
	if v, ok := raw["destination"]; ok {
		var id NodeID
		if err := json.Unmarshal(v, &id); err == nil {
			m.Destination = &id
		}
	}
	if v, ok := raw["broadcast"]; ok {
		_ = json.Unmarshal(v, &m.Broadcast)
	}
	if v, ok := raw["tx_power"]; ok {
		_ = json.Unmarshal(v, &m.TxPower)
	}
	if v, ok := raw["sf"]; ok {
		_ = json.Unmarshal(v, &m.SF)
	}
	if v, ok := raw["frequency"]; ok {
		_ = json.Unmarshal(v, &m.Frequency)
	}
	if v, ok := raw["aqi"]; ok {
		_ = json.Unmarshal(v, &m.AQI)
	}
	if v, ok := raw["weather"]; ok {
		_ = json.Unmarshal(v, &m.Weather)
	}
	if v, ok := raw["obstacle"]; ok {
		_ = json.Unmarshal(v, &m.Obstacle)
	}
	if v, ok := raw["coding_rate"]; ok {
		_ = json.Unmarshal(v, &m.CodingRate)
	}
	if v, ok := raw["preamble"]; ok {
		_ = json.Unmarshal(v, &m.Preamble)
	}
	if v, ok := raw["payload_bytes"]; ok {
		_ = json.Unmarshal(v, &m.PayloadBytes)
	}
	return m
}

// toWireMeta re-serializes the resolved meta (plus "from", "sf",
// "destination") for inclusion in a delivered "rx" frame, per spec section 3.
func (m txMeta) toWireMeta(from NodeID) map[string]any {
	out := map[string]any{
		"from":          from,
		"sf":            m.SF,
		"tx_power":      m.TxPower,
		"frequency":     m.Frequency,
		"aqi":           m.AQI,
		"weather":       m.Weather,
		"obstacle":      m.Obstacle,
		"coding_rate":   m.CodingRate,
		"preamble":      m.Preamble,
		"payload_bytes": m.PayloadBytes,
	}
	if m.Destination != nil {
		out["destination"] = *m.Destination
	} else {
		out["destination"] = nil
	}
	return out
}
