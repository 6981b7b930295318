// Package internal contains internal implementation details shared by
// package lorasim's tests.
package internal

import (
	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
)

// NewNullLogger returns a [log.Interface] that discards everything. Tests
// that don't care about log output use this instead of [log.Log] to avoid
// noise.
func NewNullLogger() log.Interface {
	return &log.Logger{
		Handler: discard.Default,
		Level:   log.FatalLevel,
	}
}
