package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testService struct {
	BaseService
	starts, stops int32
	failStart     bool
}

func (ts *testService) OnStart(context.Context) error {
	if ts.failStart {
		return errors.New("boom")
	}
	atomic.AddInt32(&ts.starts, 1)
	return nil
}

func (ts *testService) OnStop() { atomic.AddInt32(&ts.stops, 1) }

func newTestService() *testService {
	ts := &testService{}
	ts.BaseService = *NewBaseService(nil, "TestService", ts)
	return ts
}

func TestBaseServiceWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ts := newTestService()
	err := ts.Start(ctx)
	require.NoError(t, err)

	waitFinished := make(chan struct{})
	go func() {
		ts.Wait()
		waitFinished <- struct{}{}
	}()

	go ts.Stop() //nolint:errcheck // ignore for tests

	select {
	case <-waitFinished:
		// all good
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected Wait() to finish within 100 ms.")
	}
}

func TestBaseServiceLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ts := newTestService()
	require.ErrorIs(t, ts.Stop(), ErrNotStarted)

	require.NoError(t, ts.Start(ctx))
	require.True(t, ts.IsRunning())
	require.ErrorIs(t, ts.Start(ctx), ErrAlreadyStarted)

	require.NoError(t, ts.Stop())
	require.False(t, ts.IsRunning())
	require.ErrorIs(t, ts.Stop(), ErrAlreadyStopped)
	require.ErrorIs(t, ts.Start(ctx), ErrAlreadyStopped)

	require.EqualValues(t, 1, atomic.LoadInt32(&ts.starts))
	require.EqualValues(t, 1, atomic.LoadInt32(&ts.stops))
}

func TestBaseServiceFailedStart(t *testing.T) {
	ts := newTestService()
	ts.failStart = true
	require.Error(t, ts.Start(context.Background()))
	require.False(t, ts.IsRunning())

	ts.failStart = false
	require.NoError(t, ts.Start(context.Background()))
	require.NoError(t, ts.Stop())
}

func TestBaseServiceContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ts := newTestService()
	require.NoError(t, ts.Start(ctx))

	cancel()
	select {
	case <-ts.Quit():
	case <-time.After(time.Second):
		t.Fatal("service did not stop after its context was canceled")
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&ts.stops))
}
