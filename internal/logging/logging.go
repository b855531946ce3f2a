// Package logging provides the arbor loggers shared by the extraction packages.
package logging

import (
	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/writers"
)

// NewDiscard returns a logger that drops every event. It carries its own
// writer, so it never reaches the writers registered globally by main.
func NewDiscard() arbor.ILogger {
	return arbor.NewLogger().WithWriters([]writers.IWriter{discardWriter{}})
}

// OrDiscard returns logger, or a discarding logger when logger is nil
func OrDiscard(logger arbor.ILogger) arbor.ILogger {
	if logger == nil {
		return NewDiscard()
	}
	return logger
}

type discardWriter struct{}

func (w discardWriter) WithLevel(log.Level) writers.IWriter { return w }
func (discardWriter) Write(p []byte) (int, error)           { return len(p), nil }
func (discardWriter) GetFilePath() string                   { return "" }
func (discardWriter) Close() error                          { return nil }
