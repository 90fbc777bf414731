// Package monitoring holds the diagnostic logging hooks shared by the
// acquisition and derivation packages.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Warnf logs through Logf with a warning marker so that degraded readings
// (contact loss, unusual temperatures, dropped reports) stand out in the log.
func Warnf(format string, v ...interface{}) {
	Logf("warning: "+format, v...)
}
