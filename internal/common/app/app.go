package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/armadaproject/popcon/internal/common/popcontext"
)

// CreateContextWithShutdown returns a context that will report done when a SIGINT or SIGTERM is received.
// The returned function releases the signal handler and cancels the context.
func CreateContextWithShutdown(log *logrus.Entry) (*popcontext.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-c:
			log.Warnf("Received %s, shutting down", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return popcontext.New(ctx, log), func() {
		signal.Stop(c)
		cancel()
	}
}
