package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type blockingService struct {
	started atomic.Bool
	stopped chan struct{}
	once    sync.Once
}

func newBlockingService() *blockingService {
	return &blockingService{stopped: make(chan struct{})}
}

func (b *blockingService) Start() error {
	b.started.Store(true)
	<-b.stopped
	return nil
}

func (b *blockingService) Stop() { b.once.Do(func() { close(b.stopped) }) }

func (b *blockingService) isStopped() bool {
	select {
	case <-b.stopped:
		return true
	default:
		return false
	}
}

func TestLifecycle_CancelStopsServicesAndRunsClosers(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t), time.Second)
	svc1, svc2 := newBlockingService(), newBlockingService()
	lc.Add("svc1", svc1)
	lc.Add("svc2", svc2)

	var order []string
	lc.OnShutdown("first", func(context.Context) error { order = append(order, "first"); return nil })
	lc.OnShutdown("second", func(context.Context) error { order = append(order, "second"); return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lc.Run(ctx) }()

	require.Eventually(t, func() bool { return svc1.started.Load() && svc2.started.Load() }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down in time")
	}
	assert.True(t, svc1.isStopped())
	assert.True(t, svc2.isStopped())
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestLifecycle_ServiceFailureIsReturned(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t), 0)
	boom := errors.New("bind failed")
	other := newBlockingService()
	lc.Add("other", other)
	lc.Add("grpc", &FuncService{StartFn: func() error { return boom }, StopFn: func() {}})

	err := lc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "service grpc")
	assert.True(t, other.isStopped())
}

func TestLifecycle_CloserErrorsAreJoined(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t), 50*time.Millisecond)
	lc.OnShutdown("tracing", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return errors.New("flush failed")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := lc.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closing tracing: flush failed")
}

func TestFuncService(t *testing.T) {
	var started, stopped bool
	svc := &FuncService{
		StartFn: func() error { started = true; return nil },
		StopFn:  func() { stopped = true },
	}
	assert.NoError(t, svc.Start())
	svc.Stop()
	assert.True(t, started)
	assert.True(t, stopped)
}

func TestNewLifecycle_PanicsOnNilLogger(t *testing.T) {
	assert.Panics(t, func() { NewLifecycle(nil, 0) })
}
