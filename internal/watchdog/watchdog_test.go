package watchdog

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStopDisarmsBeforeDeadline(t *testing.T) {
	var exited int32
	orig := osExit
	osExit = func(code int) { atomic.StoreInt32(&exited, 1) }
	defer func() { osExit = orig }()

	stop := Start(context.Background(), 20*time.Millisecond)
	stop()
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, int32(0), atomic.LoadInt32(&exited))
}

func TestFiresAfterDeadline(t *testing.T) {
	var exited int32
	orig := osExit
	osExit = func(code int) { atomic.StoreInt32(&exited, 1) }
	defer func() { osExit = orig }()

	stop := Start(context.Background(), 10*time.Millisecond)
	defer stop()
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&exited))
}

func TestContextCancelDisarms(t *testing.T) {
	var exited int32
	orig := osExit
	osExit = func(code int) { atomic.StoreInt32(&exited, 1) }
	defer func() { osExit = orig }()

	ctx, cancel := context.WithCancel(context.Background())
	stop := Start(ctx, 20*time.Millisecond)
	defer stop()
	cancel()
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, int32(0), atomic.LoadInt32(&exited))
}
