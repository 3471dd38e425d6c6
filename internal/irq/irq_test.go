//go:build linux

package irq

import (
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSubsystem_RequestIRQConflictingSharedFlag(t *testing.T) {
	s := New(func() error { return nil })
	require.NoError(t, s.Init())

	irq := FirstDeviceIRQ() + 2
	require.NoError(t, s.RequestIRQ(irq, func(syscall.Signal, uint32) {}, 0, "first", 0))
	err := s.RequestIRQ(irq, func(syscall.Signal, uint32) {}, Shared, "second", 1)
	require.Error(t, err)
}

func TestSubsystem_RequestIRQAllowsMatchingSharedFlag(t *testing.T) {
	s := New(func() error { return nil })
	require.NoError(t, s.Init())

	irq := FirstDeviceIRQ() + 3
	require.NoError(t, s.RequestIRQ(irq, func(syscall.Signal, uint32) {}, Shared, "first", 0))
	require.NoError(t, s.RequestIRQ(irq, func(syscall.Signal, uint32) {}, Shared, "second", 1))
}

func TestSubsystem_DispatchesRegisteredHandler(t *testing.T) {
	var calls atomic.Int32
	s := New(func() error { return nil })
	require.NoError(t, s.Init())

	irq := FirstDeviceIRQ() + 4
	require.NoError(t, s.RequestIRQ(irq, func(syscall.Signal, uint32) {
		calls.Add(1)
	}, 0, "counter", 7))

	require.NoError(t, s.Run())
	defer s.Shutdown()

	require.NoError(t, s.RaiseIRQ(irq))
	waitUntil(t, func() bool { return calls.Load() >= 1 })
}

func TestSubsystem_SoftirqHandlerRunsOnSignal(t *testing.T) {
	var ran atomic.Bool
	s := New(func() error {
		ran.Store(true)
		return nil
	})
	require.NoError(t, s.Init())
	require.NoError(t, s.Run())
	defer s.Shutdown()

	require.NoError(t, s.RaiseIRQ(Softirq))
	waitUntil(t, ran.Load)
}

func TestSubsystem_ShutdownReturnsPromptly(t *testing.T) {
	s := New(func() error { return nil })
	require.NoError(t, s.Init())
	require.NoError(t, s.Run())

	done := make(chan struct{})
	go func() {
		_ = s.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not return within bounded time")
	}
}
