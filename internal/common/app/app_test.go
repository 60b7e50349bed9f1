package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/armadaproject/popcon/internal/common/logging"
)

func TestCreateContextWithShutdown_Stop(t *testing.T) {
	ctx, stop := CreateContextWithShutdown(logging.NullEntry())
	assert.NoError(t, ctx.Err())

	stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not cancelled by stop")
	}
}
