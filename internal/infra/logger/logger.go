// internal/infra/logger/logger.go
package logger

import (
	"io"
	"os"
	"strings"

	"household_finance/internal/infra/config"

	"github.com/sirupsen/logrus"
)

const serviceName = "household_finance"

// Log is the global logger instance
var Log = logrus.New()

// Init configures the global logger from the application config.
func Init(cfg *config.AppConfig) {
	level, levelErr := parseLevel(cfg.LogLevel)
	configure(Log, os.Stdout, level, cfg.Environment)

	if levelErr != nil {
		Log.WithError(levelErr).Warnf("Invalid log level %q, using %s", cfg.LogLevel, level)
	}
	Log.WithField("log_level", level.String()).Info("Logger initialized")
}

func configure(l *logrus.Logger, out io.Writer, level logrus.Level, environment string) {
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetFormatter(newFormatter(environment))
	l.ReplaceHooks(make(logrus.LevelHooks))
	l.AddHook(&defaultFieldsHook{fields: logrus.Fields{
		"service": serviceName,
		"env":     normalizeEnv(environment),
	}})
}

// parseLevel falls back to info on an empty or unknown level.
func parseLevel(raw string) (logrus.Level, error) {
	if strings.TrimSpace(raw) == "" {
		return logrus.InfoLevel, nil
	}
	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return logrus.InfoLevel, err
	}
	return level, nil
}

func normalizeEnv(environment string) string {
	env := strings.ToLower(strings.TrimSpace(environment))
	if env == "" {
		return "development"
	}
	return env
}

// newFormatter emits JSON in deployed environments and coloured text everywhere else.
func newFormatter(environment string) logrus.Formatter {
	switch normalizeEnv(environment) {
	case "production", "staging":
		return &logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap:        logrus.FieldMap{logrus.FieldKeyMsg: "message"},
		}
	default:
		return &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		}
	}
}

// defaultFieldsHook stamps every entry with fields that are not already set.
type defaultFieldsHook struct {
	fields logrus.Fields
}

func (h *defaultFieldsHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *defaultFieldsHook) Fire(e *logrus.Entry) error {
	for k, v := range h.fields {
		if _, ok := e.Data[k]; !ok {
			e.Data[k] = v
		}
	}
	return nil
}

// Component returns an entry tagged with the component name, e.g. "notification_runner".
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}

// Discard returns an entry that writes nowhere. Used by tests.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
