package utils

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// ServiceName is attached to every log line.
const ServiceName = "auction-backend"

// base shares the standard logger, so SetLevel and SetOutput apply to it.
var base = log.WithField("service", ServiceName)

func init() {
	// JSON lines, RFC 3339 timestamps
	log.SetFormatter(&log.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)
}

// SetLevel applies a level name such as "debug" or "warn". Unknown names keep the
// current level and are reported back as an error.
func SetLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	return nil
}

// SetOutput redirects log output, mainly so tests can silence or capture it
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func Debug(message string, fields map[string]any) {
	base.WithFields(fields).Debug(message)
}

func Info(message string, fields map[string]any) {
	base.WithFields(fields).Info(message)
}

func Warn(message string, fields map[string]any) {
	base.WithFields(fields).Warn(message)
}

func Error(message string, fields map[string]any) {
	base.WithFields(fields).Error(message)
}

// Fatal logs at fatal level, then exits the process with status 1
func Fatal(message string, fields map[string]any) {
	base.WithFields(fields).Fatal(message)
}
