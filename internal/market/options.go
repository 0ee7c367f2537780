package market

import (
	"time"

	"github.com/ducminhle1904/trade-risk-engine/internal/logger"
)

// Option configures the logger and clock of a market component
type Option func(*options)

type options struct {
	log *logger.Logger
	now func() time.Time
}

func buildOptions(component string, opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	o.log = o.log.With(component)
	return o
}

func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
