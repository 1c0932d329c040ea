package registry

import (
	"github.com/yairfalse/vahti/telemetry"
)

// cronLogger routes cron's internal logging through zerolog
type cronLogger struct {
	logger *telemetry.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
