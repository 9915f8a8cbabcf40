package utils

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/tebeka/atexit"
)

// InterruptExitCode is the status used when a signal ends the process.
const InterruptExitCode = 130

// ExitHook is a cleanup registered with atexit. It runs at most once: either
// when the process leaves through atexit.Exit, or earlier through Run.
type ExitHook struct {
	id   atexit.HandlerID
	once sync.Once
	fn   func()
}

// OnExit registers fn to run when the process exits through atexit.
func OnExit(fn func()) *ExitHook {
	h := &ExitHook{fn: fn}
	h.id = atexit.Register(func() { h.once.Do(h.fn) })
	return h
}

// Run unregisters the hook and runs it now, unless it already ran.
func (h *ExitHook) Run() {
	_ = h.id.Cancel()
	h.once.Do(h.fn)
}

// Cancel unregisters the hook without running it.
func (h *ExitHook) Cancel() {
	_ = h.id.Cancel()
	h.once.Do(func() {})
}

// ExitOnInterrupt makes SIGINT and SIGTERM leave through atexit.Exit, so
// registered hooks still run when the user interrupts a command.
func ExitOnInterrupt() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		atexit.Exit(InterruptExitCode)
	}()
}
