// Package signals coordinates the interpreter's reaction to SIGINT and
// SIGCHLD.
//
// The Go runtime's signal handler is the real asynchronous context: it queues
// the signal and returns. Everything else, forwarding the interrupt and
// reaping children, runs on the coordinator's goroutine, so it is free to
// lock, allocate and write output. The only state shared with the interpreter's
// main loop is the Foreground slot and the set of tracked background pids.
package signals

import (
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"sync"

	"golang.org/x/sys/unix"
)

// Display receives the events the coordinator reports.
//
// Methods are called from the coordinator's goroutine while the interpreter
// may be blocked reading input, implementations must redisplay the prompt
// after writing.
type Display interface {
	// Interrupted is called once an interrupt has been handled.
	Interrupted()
	// BackgroundDone is called when a tracked background child finishes.
	BackgroundDone(pid int, status unix.WaitStatus)
}

type (
	killFunc func(pid int, sig unix.Signal) error
	waitFunc func(pid int, status *unix.WaitStatus, options int, rusage *unix.Rusage) (int, error)
)

// Coordinator forwards interrupts to the foreground child and reaps finished
// background children.
type Coordinator struct {
	display Display
	log     *log.Logger

	fg Foreground

	mu         sync.Mutex
	background map[int]struct{}

	// reapMu serializes reaping passes.
	reapMu sync.Mutex

	kill killFunc
	wait waitFunc

	sigs chan os.Signal
	kick chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a coordinator that reports to display and logs warnings to
// logger. A nil logger discards warnings.
func New(display Display, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Coordinator{
		display:    display,
		log:        logger,
		background: make(map[int]struct{}),
		kill:       unix.Kill,
		wait:       unix.Wait4,
	}
}

// Start installs the SIGINT and SIGCHLD handlers. Once started the process is
// no longer terminated by SIGINT.
func (c *Coordinator) Start() {
	c.sigs = make(chan os.Signal, 8)
	c.kick = make(chan struct{}, 1)
	c.done = make(chan struct{})

	signal.Notify(c.sigs, unix.SIGINT, unix.SIGCHLD)

	c.wg.Add(1)
	go c.loop()
}

// Stop removes the handlers and waits for the coordinator goroutine to exit.
func (c *Coordinator) Stop() {
	if c.sigs == nil {
		return
	}
	signal.Stop(c.sigs)
	close(c.done)
	c.wg.Wait()
	c.sigs = nil
}

func (c *Coordinator) loop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			return
		case sig := <-c.sigs:
			switch sig {
			case unix.SIGINT:
				c.Interrupt()
			case unix.SIGCHLD:
				c.Reap()
			}
		case <-c.kick:
			c.Reap()
		}
	}
}

// SetForeground marks pid as the child the interpreter is waiting on.
func (c *Coordinator) SetForeground(pid int) {
	c.fg.Set(pid)
}

// ClearForeground marks that no foreground child is running.
func (c *Coordinator) ClearForeground() {
	c.fg.Clear()
}

// Foreground returns the foreground pid, if any.
func (c *Coordinator) Foreground() (int, bool) {
	return c.fg.Get()
}

// TrackBackground registers a background child to be reaped once it
// finishes.
func (c *Coordinator) TrackBackground(pid int) {
	c.mu.Lock()
	c.background[pid] = struct{}{}
	c.mu.Unlock()

	// The child may have exited before it was tracked, in which case its
	// SIGCHLD has already been consumed.
	if c.kick != nil {
		select {
		case c.kick <- struct{}{}:
		default:
		}
	}
}

// Tracked returns the background pids that haven't been reaped, in ascending
// order.
func (c *Coordinator) Tracked() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	pids := make([]int, 0, len(c.background))
	for pid := range c.background {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}

func (c *Coordinator) forget(pid int) {
	c.mu.Lock()
	delete(c.background, pid)
	c.mu.Unlock()
}

// Interrupt forwards SIGINT to the foreground child, if there is one, and
// tells the display. A child that has already exited is not an error.
func (c *Coordinator) Interrupt() {
	if pid, ok := c.fg.Get(); ok {
		if err := c.kill(pid, unix.SIGINT); err != nil && !errors.Is(err, unix.ESRCH) {
			c.log.Printf("failed to send SIGINT to foreground child %d: %v", pid, err)
		}
	}

	if c.display != nil {
		c.display.Interrupted()
	}
}

// Reap collects every tracked background child that has finished without
// blocking, repeating until a pass finds nothing more. The foreground child is
// never reaped or reported here, its launcher waits for it.
func (c *Coordinator) Reap() {
	c.reapMu.Lock()
	defer c.reapMu.Unlock()

	for c.reapOnce() > 0 {
	}
}

func (c *Coordinator) reapOnce() (reaped int) {
	for _, pid := range c.Tracked() {
		if c.fg.Is(pid) {
			continue
		}

		var status unix.WaitStatus
		wpid, err := c.wait(pid, &status, unix.WNOHANG, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			// Try again on the next pass.
			reaped++
		case errors.Is(err, unix.ECHILD):
			// Already collected elsewhere, nothing to report.
			c.forget(pid)
		case err != nil:
			c.log.Printf("waitpid error while reaping %d: %v", pid, err)
		case wpid != pid:
			// Still running.
		case status.Exited() || status.Signaled():
			c.forget(pid)
			reaped++
			if !c.fg.Is(pid) && c.display != nil {
				c.display.BackgroundDone(pid, status)
			}
		}
	}
	return reaped
}
