// Command lorasim-broker runs the virtual RF medium broker.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"

	"github.com/bassosimone/lorasim"
)

func main() {
	// parse command line flags, layered over environment-provided defaults
	cfg := lorasim.NewConfigFromEnv()
	addr := flag.String("addr", cfg.ListenAddr, "TCP address to listen on")
	seed := flag.Int64("seed", cfg.Seed, "RNG seed (0 means use real entropy)")
	trace := flag.String("trace", cfg.TraceFile, "write a delivery trace to this pcap file")
	statsInterval := flag.Int("stats-interval", cfg.StatsInterval, "seconds between summary log lines (0 disables)")
	logLevel := flag.String("log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	flag.Parse()

	cfg.ListenAddr = *addr
	cfg.Seed = *seed
	cfg.TraceFile = *trace
	cfg.StatsInterval = *statsInterval
	cfg.LogLevel = *logLevel

	log.SetLevel(parseLogLevel(cfg.LogLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		log.WithError(err).Error("lorasim: listen")
		os.Exit(1)
	}

	broker := lorasim.NewBroker(cfg, log.Log)
	defer broker.Close()

	log.WithField("addr", cfg.ListenAddr).Info("lorasim: listening")
	if err := broker.Serve(ctx, listener); err != nil {
		log.WithError(err).Error("lorasim: serve")
		os.Exit(1)
	}
}

func parseLogLevel(s string) log.Level {
	switch s {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
