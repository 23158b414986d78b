package util

import (
	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
	"os"
)

const (
	// ErrGeneric is the exit code used for errors that carry no code of
	// their own.
	ErrGeneric = 99
)

// MustErrorNilOrExit checks the provided argument. If it's `nil` it simply
// returns. If not, it logs the error at `log.FatalLevel` and exits
// immediately. The exit code is unwrapped from a `flags.Error` object when
// possible; any other kind of error exits with the generic code 99.
func MustErrorNilOrExit(err error) {
	if err == nil {
		return
	}

	if flagsError, ok := err.(*flags.Error); ok {
		if flagsError.Type == flags.ErrHelp {
			os.Exit(0)
		}

		log.StandardLogger().WithError(err).Logf(log.FatalLevel, "Error: %+v", err)
		log.Exit(int(flagsError.Type))
	} else {
		log.StandardLogger().WithError(err).Logf(log.FatalLevel, "Error: %+v", err)
		log.Exit(ErrGeneric)
	}
}
