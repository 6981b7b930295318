package lorasim

//
// Structured log lines for the four event kinds of spec section 6/7, built
// directly on apex/log's Fields/Interface rather than introducing a new
// logging abstraction (see SPEC_FULL.md section 2A).
//

import "github.com/apex/log"

func logRegister(logger log.Interface, id NodeID, loc Location) {
	logger.WithFields(log.Fields{
		"event":   "REGISTER",
		"node_id": id,
		"x":       loc.X,
		"y":       loc.Y,
	}).Info("lorasim: register")
}

func logDisconnect(logger log.Interface, id NodeID) {
	logger.WithFields(log.Fields{
		"event":   "DISCONNECT",
		"node_id": id,
	}).Info("lorasim: disconnect")
}

func logDelivered(logger log.Interface, sender, receiver NodeID, sf int, rssi, snr, delayMs float64) {
	logger.WithFields(log.Fields{
		"event":    "DELIVERED",
		"sender":   sender,
		"receiver": receiver,
		"sf":       sf,
		"rssi":     rssi,
		"snr":      snr,
		"delay_ms": delayMs,
	}).Info("lorasim: delivered")
}

func logDrop(logger log.Interface, sender, receiver NodeID, sf int, reason DropReason) {
	logger.WithFields(log.Fields{
		"event":    "DROPPED",
		"sender":   sender,
		"receiver": receiver,
		"sf":       sf,
		"reason":   string(reason),
	}).Warn("lorasim: dropped")
}
