// Package launcher starts external programs for the interpreter.
//
// A child is started by re-executing the interpreter binary in child mode
// (see RunChildIfRequested). The child applies the redirections and then
// replaces itself with the target program, so redirection and exec failures
// only ever end the child and the parent observes nothing but an exit status.
package launcher

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/josephlewis42/bropesh/core/shell"
	"golang.org/x/sys/unix"
)

// Kind is the way a launch ended.
type Kind int

const (
	// SpawnFailed means no child could be created.
	SpawnFailed Kind = iota
	// Foreground means the child ran to completion, Status holds its exit
	// status.
	Foreground
	// Background means the child was detached, Pid holds its process ID.
	Background
)

func (k Kind) String() string {
	switch k {
	case Foreground:
		return "foreground"
	case Background:
		return "background"
	default:
		return "spawn-failed"
	}
}

// Outcome describes the result of a launch.
type Outcome struct {
	Kind   Kind
	Pid    int
	Status int
	Err    error
}

// Supervisor is told about every child the launcher creates.
type Supervisor interface {
	SetForeground(pid int)
	ClearForeground()
	TrackBackground(pid int)
}

// Launcher creates child processes.
type Launcher struct {
	// Self is the binary re-executed as the child, normally the running
	// interpreter. It must call RunChildIfRequested before anything else.
	Self string

	// Stdin, Stdout and Stderr are inherited by children unless redirected.
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// Out receives notices about background children, Stdout if nil.
	Out io.Writer
	// ErrOut receives launch failures, Stderr if nil.
	ErrOut io.Writer

	// Env is the environment for children, os.Environ() if nil.
	Env []string

	Supervisor Supervisor
}

// New creates a launcher that re-executes the running binary and uses the
// process's standard streams.
func New(supervisor Supervisor) (*Launcher, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating interpreter binary: %w", err)
	}

	return &Launcher{
		Self:       self,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Supervisor: supervisor,
	}, nil
}

func (l *Launcher) out() io.Writer {
	if l.Out != nil {
		return l.Out
	}
	return l.Stdout
}

func (l *Launcher) errOut() io.Writer {
	if l.ErrOut != nil {
		return l.ErrOut
	}
	return l.Stderr
}

func (l *Launcher) environ() []string {
	if l.Env != nil {
		return l.Env
	}
	return os.Environ()
}

// Launch starts cmd. Background commands return as soon as the child exists,
// foreground commands block until the child terminates.
func (l *Launcher) Launch(cmd *shell.Command) Outcome {
	if cmd == nil || len(cmd.Args) == 0 {
		return Outcome{Kind: SpawnFailed, Err: errors.New("empty command")}
	}

	pid, err := syscall.ForkExec(l.Self, cmd.Args, &syscall.ProcAttr{
		Env:   childEnv(l.environ(), cmd.InputFile, cmd.OutputFile),
		Files: []uintptr{l.Stdin.Fd(), l.Stdout.Fd(), l.Stderr.Fd()},
	})
	if err != nil {
		fmt.Fprintf(l.errOut(), "bropesh: fork failed: %v\n", err)
		return Outcome{Kind: SpawnFailed, Err: fmt.Errorf("spawning %q: %w", cmd.Name(), err)}
	}

	if cmd.Background {
		fmt.Fprintf(l.out(), "[%d] %d\n", pid, pid)
		if l.Supervisor != nil {
			l.Supervisor.TrackBackground(pid)
		}
		return Outcome{Kind: Background, Pid: pid}
	}

	if l.Supervisor != nil {
		l.Supervisor.SetForeground(pid)
	}
	status, err := waitFor(pid)
	if l.Supervisor != nil {
		l.Supervisor.ClearForeground()
	}

	if err != nil {
		fmt.Fprintf(l.errOut(), "bropesh: waitpid failed for foreground process: %v\n", err)
		return Outcome{Kind: Foreground, Pid: pid, Status: 1, Err: err}
	}
	return Outcome{Kind: Foreground, Pid: pid, Status: ExitStatus(status)}
}

// waitFor blocks until pid terminates, retrying if the wait is interrupted.
func waitFor(pid int) (unix.WaitStatus, error) {
	var status unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &status, 0, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return status, err
	}
}

// ExitStatus converts a wait status to the shell convention: the exit code
// for normal termination, 128 plus the signal number for a signal death.
func ExitStatus(status unix.WaitStatus) int {
	switch {
	case status.Exited():
		return status.ExitStatus()
	case status.Signaled():
		return 128 + int(status.Signal())
	default:
		return 1
	}
}
