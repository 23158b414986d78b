package logging

import (
	log "github.com/sirupsen/logrus"
)

// SetVerbosity maps the number of -v repetitions to a logrus level.
func SetVerbosity(v []bool) {
	verbosity := log.Level(len(v))
	if verbosity < 0 {
		verbosity = log.PanicLevel
	} else if verbosity > 6 {
		verbosity = log.TraceLevel
	}
	log.SetLevel(verbosity)
}

// VerbosityName returns the name of the current logging level.
func VerbosityName() string {
	switch log.GetLevel() {
	case log.PanicLevel:
		return "PANIC"
	case log.FatalLevel:
		return "FATAL"
	case log.ErrorLevel:
		return "ERROR"
	case log.WarnLevel:
		return "WARN"
	case log.InfoLevel:
		return "INFO"
	case log.DebugLevel:
		return "DEBUG"
	default:
		return "TRACE"
	}
}
