// Package logging sets up the process-wide structured logger, logrus, the
// same library flightctl-flightctl wires through its server packages as a
// logrus.FieldLogger.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a JSON-formatted logrus logger writing to stderr at level.
// JSON output matches the machine-consumable convention the rest of the
// pack's services use for production logging.
func New(level logrus.Level) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(level)
	return log
}
