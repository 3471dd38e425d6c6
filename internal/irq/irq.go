//go:build linux

// Package irq implements the software-interrupt subsystem: process signals
// repurposed as per-device interrupt lines, dispatched by a single dedicated
// goroutine that is the sole reader of the signal channel it registers.
//
// Go has no direct equivalent of pthread_sigmask/sigwait/pthread_kill, so
// this package expresses the same contract with os/signal and golang.org/x/sys/unix:
// a channel stands in for the blocked sigmask, a closed channel stands in for
// the startup barrier, and RaiseIRQ uses a process-directed kill(2) instead of
// a thread-directed one, relying on being the only consumer of that channel.
package irq

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// Softirq is the signal reserved for soft-IRQ wakeups (protocol bottom half).
const Softirq = syscall.SIGUSR1

// Terminate is the signal that ends the interrupt goroutine.
const Terminate = syscall.SIGHUP

// sigrtmin is the first real-time signal number available to userspace on
// Linux. The kernel's real-time range starts at 32, with the first two
// numbers reserved by glibc for thread management; SIGRTMIN is a libc macro
// rather than a kernel constant, so x/sys/unix does not export it and the
// userspace value is pinned here.
const sigrtmin = 34

// FirstDeviceIRQ is the first signal number available for device IRQs,
// chosen above the real-time signal base to avoid colliding with signals the
// Go runtime or other subsystems may already reserve.
func FirstDeviceIRQ() syscall.Signal {
	return syscall.Signal(sigrtmin + 1)
}

// Flags controls IRQ registration semantics.
type Flags uint32

// Shared allows two IRQEntry registrations to coexist on the same signal.
const Shared Flags = 0x01

// Handler is invoked on the interrupt goroutine when irq is dispatched.
type Handler func(irq syscall.Signal, dev uint32)

type entry struct {
	irq       syscall.Signal
	flags     Flags
	handler   Handler
	dev       uint32
	debugName string
}

// SoftirqHandler is invoked whenever the soft-IRQ signal is dispatched.
type SoftirqHandler func() error

// Subsystem is a process-wide IRQ table plus its dedicated interrupt
// goroutine. The zero value is not usable; construct with New.
type Subsystem struct {
	mu      sync.Mutex
	entries []entry
	notify  map[syscall.Signal]bool

	softirq SoftirqHandler

	sigCh   chan os.Signal
	barrier chan struct{}
	done    chan struct{}
}

// New returns an uninitialized Subsystem. softirq is invoked on the
// interrupt goroutine every time the soft-IRQ signal is delivered.
func New(softirq SoftirqHandler) *Subsystem {
	return &Subsystem{
		softirq: softirq,
		notify:  make(map[syscall.Signal]bool),
	}
}

// Init pre-registers the terminate and soft-IRQ signals. Call once before
// RequestIRQ/Run.
func (s *Subsystem) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sigCh = make(chan os.Signal, 64)
	s.barrier = make(chan struct{})
	s.done = make(chan struct{})
	s.addNotifyLocked(Terminate)
	s.addNotifyLocked(Softirq)
	slog.Debug("irq: initialized")
	return nil
}

func (s *Subsystem) addNotifyLocked(sig syscall.Signal) {
	if s.notify[sig] {
		return
	}
	s.notify[sig] = true
	signal.Notify(s.sigCh, sig)
}

// RequestIRQ registers handler to run whenever irq is dispatched, tagged
// with dev for the caller's own bookkeeping. Two registrations may share a
// signal only if both specify Shared; otherwise the second call fails.
func (s *Subsystem) RequestIRQ(sig syscall.Signal, handler Handler, flags Flags, name string, dev uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.irq == sig && (e.flags&Shared) != (flags&Shared) {
			return &Error{Msg: fmt.Sprintf("irq %d already registered with different SHARED flag", sig)}
		}
	}

	s.entries = append(s.entries, entry{irq: sig, flags: flags, handler: handler, dev: dev, debugName: name})
	s.addNotifyLocked(sig)
	slog.Debug("irq: registered", "irq", sig, "name", name)
	return nil
}

// Run blocks the notified signals from synchronous delivery to the calling
// goroutine by funneling them exclusively through the signal channel,
// spawns the interrupt goroutine, and waits for it to reach its pre-loop
// barrier before returning.
func (s *Subsystem) Run() error {
	if s.sigCh == nil {
		return &Error{Msg: "irq: Init must be called before Run"}
	}
	go s.loop()
	<-s.barrier
	return nil
}

// RaiseIRQ directs sig at the process; the interrupt goroutine is the only
// registered consumer of it. Callers must ensure Run has already returned.
func (s *Subsystem) RaiseIRQ(sig syscall.Signal) error {
	if err := unix.Kill(unix.Getpid(), sig); err != nil {
		return &Error{Msg: fmt.Sprintf("raise irq %d: %v", sig, err), Cause: err}
	}
	return nil
}

// Shutdown raises the terminate signal and waits for the interrupt
// goroutine to exit.
func (s *Subsystem) Shutdown() error {
	if s.sigCh == nil {
		return nil
	}
	if err := s.RaiseIRQ(Terminate); err != nil {
		return err
	}
	<-s.done
	return nil
}

func (s *Subsystem) loop() {
	slog.Debug("irq: interrupt goroutine start")
	close(s.barrier)

	for {
		sig := <-s.sigCh
		unixSig, ok := sig.(syscall.Signal)
		if !ok {
			continue
		}
		switch unixSig {
		case Terminate:
			slog.Debug("irq: interrupt goroutine terminating")
			close(s.done)
			return
		case Softirq:
			metricSoftirqRuns.Inc()
			if err := s.softirq(); err != nil {
				slog.Error("irq: softirq handler failed", "error", err)
			}
		default:
			s.dispatch(unixSig)
		}
	}
}

func (s *Subsystem) dispatch(sig syscall.Signal) {
	s.mu.Lock()
	matched := make([]entry, 0, 1)
	for _, e := range s.entries {
		if e.irq == sig {
			matched = append(matched, e)
		}
	}
	s.mu.Unlock()

	metricIRQDispatched.WithLabelValues(strconv.Itoa(int(sig))).Add(float64(len(matched)))
	for _, e := range matched {
		e.handler(sig, e.dev)
	}
}

// Error is the Intr error kind: failures originating in signal/goroutine
// primitives, fatal to the caller at init/run/shutdown time.
type Error struct {
	Msg   string
	Cause error
}

func (e *Error) Error() string { return "intr: " + e.Msg }
func (e *Error) Unwrap() error { return e.Cause }
