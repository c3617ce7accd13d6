package observability

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger creates the logger shared across the repo. Components accept
// an injected *logrus.Logger and fall back to logrus.New when handed nil,
// so this constructor is a convenience for binaries, not a requirement.
//
// Unknown level strings default to info with a warning, because a typo in
// a log-level flag should never stop an attribution check.
func NewLogger(level string, output io.Writer) *logrus.Logger {
	if output == nil {
		output = os.Stderr
	}

	log := logrus.New()
	log.SetOutput(output)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.SetLevel(logrus.InfoLevel)
		log.Warnf("Unknown log level %q, defaulting to info", level)
		return log
	}
	log.SetLevel(lvl)

	return log
}
