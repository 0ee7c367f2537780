package risk

import (
	"time"

	"github.com/ducminhle1904/trade-risk-engine/internal/logger"
)

// Option configures optional collaborators shared by all risk components
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

// WithLogger sets the logger a component writes to
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithClock replaces time.Now, mainly for deterministic tests
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
