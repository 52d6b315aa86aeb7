package launcher

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	envChild  = "BROPESH_CHILD"
	envStdin  = "BROPESH_CHILD_STDIN"
	envStdout = "BROPESH_CHILD_STDOUT"

	envPath = "PATH"

	stdinFd  = 0
	stdoutFd = 1
)

// childEnv returns environ with the variables that put a re-executed
// interpreter into child mode.
func childEnv(environ []string, inputFile, outputFile string) []string {
	env := make([]string, 0, len(environ)+3)
	for _, kv := range environ {
		if !isChildVar(kv) {
			env = append(env, kv)
		}
	}

	env = append(env, envChild+"=1")
	if inputFile != "" {
		env = append(env, envStdin+"="+inputFile)
	}
	if outputFile != "" {
		env = append(env, envStdout+"="+outputFile)
	}
	return env
}

func isChildVar(kv string) bool {
	for _, name := range []string{envChild, envStdin, envStdout} {
		if strings.HasPrefix(kv, name+"=") {
			return true
		}
	}
	return false
}

// childRequest is what a child-mode process has been asked to do.
type childRequest struct {
	argv       []string
	env        []string
	inputFile  string
	outputFile string
}

func parseChildRequest(argv, environ []string) (*childRequest, bool) {
	req := &childRequest{argv: argv}
	isChild := false

	for _, kv := range environ {
		name, value, _ := strings.Cut(kv, "=")
		switch name {
		case envChild:
			isChild = value != ""
		case envStdin:
			req.inputFile = value
		case envStdout:
			req.outputFile = value
		default:
			req.env = append(req.env, kv)
		}
	}

	return req, isChild
}

func (r *childRequest) getenv(key string) string {
	for _, kv := range r.env {
		if name, value, ok := strings.Cut(kv, "="); ok && name == key {
			return value
		}
	}
	return ""
}

// RunChildIfRequested turns the current process into a child started by a
// Launcher: it applies the requested redirections and replaces itself with
// the target program. It returns immediately if the process wasn't started by
// a Launcher, and never returns otherwise.
//
// It must be the first thing main (or TestMain) does.
func RunChildIfRequested() {
	req, ok := parseChildRequest(os.Args, os.Environ())
	if !ok {
		return
	}
	os.Exit(req.run(os.Stderr))
}

// run only returns if the program couldn't be started, with the status the
// child should exit with.
func (r *childRequest) run(stderr io.Writer) int {
	if len(r.argv) == 0 || r.argv[0] == "" {
		fmt.Fprintln(stderr, "bropesh: error running command: empty command")
		return 1
	}

	if r.inputFile != "" {
		if err := redirect(r.inputFile, unix.O_RDONLY, 0, stdinFd); err != nil {
			fmt.Fprintf(stderr, "bropesh: failed to open input file: %v\n", err)
			return 1
		}
	}

	if r.outputFile != "" {
		if err := redirect(r.outputFile, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC, 0644, stdoutFd); err != nil {
			fmt.Fprintf(stderr, "bropesh: failed to open output file: %v\n", err)
			return 1
		}
	}

	program := r.argv[0]
	path, err := LookPath(program, r.getenv(envPath))
	if err == nil {
		err = unix.Exec(path, r.argv, r.env)
	}

	fmt.Fprintf(stderr, "bropesh: error running command %q: %v\n", program, reason(err))
	return 1
}

// redirect opens path and moves it onto target, closing the original
// descriptor.
func redirect(path string, flags int, mode uint32, target int) error {
	fd, err := unix.Open(path, flags|unix.O_CLOEXEC, mode)
	if err != nil {
		return &fs.PathError{Op: "open", Path: path, Err: err}
	}
	if fd == target {
		// Already in place, only O_CLOEXEC has to go.
		_, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, 0)
		return err
	}
	defer unix.Close(fd)

	return unix.Dup2(fd, target)
}

// reason strips the path from filesystem errors.
func reason(err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}
