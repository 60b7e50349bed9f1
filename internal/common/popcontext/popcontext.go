package popcontext

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Context is an extension of Go's context which also carries a logger. Components of the populator log through
// ctx.Log so that fields such as the handler name and the fill being processed follow the call chain.
type Context struct {
	context.Context
	Log *logrus.Entry
}

func New(ctx context.Context, log *logrus.Entry) *Context {
	return &Context{
		Context: ctx,
		Log:     log,
	}
}

// WithTimeout returns a copy of parent that is cancelled after timeout.
func WithTimeout(parent *Context, timeout time.Duration) (*Context, context.CancelFunc) {
	c, cancel := context.WithTimeout(parent.Context, timeout)
	return New(c, parent.Log), cancel
}

// Detached returns a context keeping the values and logger of parent but not its cancellation, bounded by timeout.
// It is meant for bookkeeping that must happen even when the work itself was interrupted.
func Detached(parent *Context, timeout time.Duration) (*Context, context.CancelFunc) {
	return WithTimeout(New(context.WithoutCancel(parent.Context), parent.Log), timeout)
}

// WithLogField returns a copy of parent with the supplied key-value added to the logger
func WithLogField(parent *Context, key string, val interface{}) *Context {
	return New(parent.Context, parent.Log.WithField(key, val))
}
