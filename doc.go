// Package lorasim is a virtual RF medium for LoRa-style radio nodes.
//
// Independent node processes connect to a [Broker] over TCP and exchange
// newline-delimited JSON frames. The broker reproduces the observable
// behavior of a real LoRa link: it runs every transmitted frame through a
// propagation model (see [ComputeOutcome]) to obtain RSSI, SNR, airtime and
// delay, decides whether the frame is dropped and why (see [DropOracle]),
// accounts for collisions and congestion, and schedules delivery to one or
// all peers after the modeled delay (see [Scheduler]).
//
// A [Broker] owns a [Registry] of connected nodes, a [Counters] set of
// shared in-flight/streak/congestion state, and a [Scheduler] that keeps one
// delivery queue per receiver. Construct one with [NewBroker] and drive it with
// [Broker.Serve].
package lorasim
