package main

import (
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/matrix-org/dugong"
	"github.com/sirupsen/logrus"
)

// SetupLogging configures logrus output and level, following dendrite's
// terminal-writer-plus-sentry-hook pattern, and wires getsentry/sentry-go
// for error-level log lines when a DSN is configured.
func SetupLogging(cfg LoggingConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(dugong.NewTerminalWriter(os.Stderr))

	if cfg.SentryDSN == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
		return err
	}
	logrus.AddHook(&sentryHook{levels: []logrus.Level{logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel}})
	return nil
}

// sentryHook forwards error-and-above log entries to Sentry. Sentry-go's
// own logrus integration lives in a separate submodule this module does not
// depend on, so this hook is hand-written against the core client instead.
type sentryHook struct {
	levels []logrus.Level
}

func (h *sentryHook) Levels() []logrus.Level { return h.levels }

func (h *sentryHook) Fire(entry *logrus.Entry) error {
	event := sentry.NewEvent()
	event.Message = entry.Message
	event.Level = sentryLevel(entry.Level)
	for k, v := range entry.Data {
		if event.Extra == nil {
			event.Extra = map[string]interface{}{}
		}
		event.Extra[k] = v
	}
	sentry.CaptureEvent(event)
	return nil
}

func sentryLevel(l logrus.Level) sentry.Level {
	switch l {
	case logrus.PanicLevel, logrus.FatalLevel:
		return sentry.LevelFatal
	case logrus.ErrorLevel:
		return sentry.LevelError
	case logrus.WarnLevel:
		return sentry.LevelWarning
	default:
		return sentry.LevelInfo
	}
}
