// Package logging provides the ambient warning/info stream shared by the
// discovery, transcoding, and writer packages. Conversion never aborts on
// a warning; it only ever surfaces through this stream.
package logging

import "github.com/sirupsen/logrus"

// Logger is anything that can receive structured warning/info records.
// *logrus.Logger and *logrus.Entry both satisfy it.
type Logger interface {
	WithFields(fields logrus.Fields) *logrus.Entry
	Warnf(format string, args ...interface{})
	Infof(format string, args ...interface{})
}

// Default is used by every package below when no Options.Logger is
// supplied. It is logrus's standard logger: it writes to stderr at
// logrus's default info level, so both warnings and Infof messages
// appear, matching the reference tool's fprintf(stderr, ...) diagnostics.
var Default Logger = logrus.StandardLogger()

// OnceKey identifies a warning that must fire at most once per pattern,
// per spec.md's "warnings ... emitted once per pattern" rule.
type OnceKey struct {
	Pattern int
	Kind    string
}

// Deduper suppresses repeat warnings for the same (pattern, kind) pair
// within a single writer invocation. It is rebuilt per Write call, never
// shared across modules.
type Deduper struct {
	seen map[OnceKey]bool
}

// NewDeduper returns a fresh, empty deduper.
func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[OnceKey]bool)}
}

// WarnOnce logs a warning through log the first time this (pattern, kind)
// pair is seen, and is a no-op afterward.
func (d *Deduper) WarnOnce(log Logger, pattern int, kind, format string, args ...interface{}) {
	key := OnceKey{Pattern: pattern, Kind: kind}
	if d.seen[key] {
		return
	}
	d.seen[key] = true
	if log == nil {
		log = Default
	}
	log.WithFields(logrus.Fields{"pattern": pattern, "kind": kind}).Warnf(format, args...)
}
