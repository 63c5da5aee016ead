package cli

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/subtitle-studio/internal/config"
)

type fakeScheduler struct {
	called  bool
	closed  bool
	failErr error
}

func (f *fakeScheduler) Schedule(context.Context) error {
	f.called = true
	return f.failErr
}

func (f *fakeScheduler) Close(context.Context) error {
	f.closed = true
	return nil
}

type fakeCron struct {
	started bool
	stopped bool
}

func (f *fakeCron) Start() {
	f.started = true
}

func (f *fakeCron) Stop() context.Context {
	f.stopped = true
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

type fakeHTTP struct {
	listenCalled chan struct{}
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	listenErr    error
}

func newFakeHTTP() *fakeHTTP {
	return &fakeHTTP{
		listenCalled: make(chan struct{}),
		shutdownCh:   make(chan struct{}),
	}
}

func (f *fakeHTTP) ListenAndServe(string) error {
	close(f.listenCalled)
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.shutdownCh
	return http.ErrServerClosed
}

func (f *fakeHTTP) Shutdown(context.Context) error {
	f.shutdownOnce.Do(func() { close(f.shutdownCh) })
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{Addr: "127.0.0.1:0"},
	}
}

func TestRunWithComponents_StartsCronAndHTTP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := &fakeScheduler{}
	cronEngine := &fakeCron{}
	httpSrv := newFakeHTTP()

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- runWithComponents(ctx, testConfig(), scheduler, cronEngine, httpSrv)
	}()

	select {
	case <-httpSrv.listenCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("http server did not start")
	}

	cancel()

	select {
	case err := <-doneCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runWithComponents did not exit after cancellation")
	}

	assert.True(t, scheduler.called)
	assert.True(t, scheduler.closed, "sessions are flushed on shutdown")
	assert.True(t, cronEngine.started)
	assert.True(t, cronEngine.stopped)
}

func TestRunWithComponents_ServerFailure(t *testing.T) {
	scheduler := &fakeScheduler{}
	cronEngine := &fakeCron{}
	httpSrv := newFakeHTTP()
	httpSrv.listenErr = errors.New("address already in use")

	err := runWithComponents(context.Background(), testConfig(), scheduler, cronEngine, httpSrv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
	assert.True(t, scheduler.closed)
	assert.True(t, cronEngine.stopped)
}

func TestRunWithComponents_ScheduleFailure(t *testing.T) {
	scheduler := &fakeScheduler{failErr: errors.New("bad cron expression")}
	cronEngine := &fakeCron{}

	err := runWithComponents(context.Background(), testConfig(), scheduler, cronEngine, newFakeHTTP())
	require.Error(t, err)
	assert.False(t, cronEngine.started)
}
