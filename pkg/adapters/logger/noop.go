package logger

import "github.com/user/decodebridge/pkg/ports"

// NoopLogger drops everything. Quiet mode and most tests use it.
type NoopLogger struct{}

// NewNoop returns a NoopLogger.
func NewNoop() *NoopLogger { return &NoopLogger{} }

func (NoopLogger) Debug(string, ...interface{}) {}
func (NoopLogger) Info(string, ...interface{})  {}
func (NoopLogger) Warn(string, ...interface{})  {}
func (NoopLogger) Error(string, ...interface{}) {}

// WithComponent returns the receiver; there is nothing to tag.
func (l *NoopLogger) WithComponent(string) ports.Logger { return l }

var _ ports.Logger = (*NoopLogger)(nil)
