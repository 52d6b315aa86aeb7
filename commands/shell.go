// Package commands implements the interactive interpreter: the read loop,
// the builtins and the prompt.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/user"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/bropesh/core/config"
	"github.com/josephlewis42/bropesh/core/history"
	"github.com/josephlewis42/bropesh/core/launcher"
	"github.com/josephlewis42/bropesh/core/shell"
	"github.com/josephlewis42/bropesh/core/signals"
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// LineReader is the line editor the shell reads commands from.
type LineReader interface {
	io.Writer

	SetPrompt(prompt string)
	Readline() (string, error)

	// SaveHistory makes the line available for in-session recall.
	SaveHistory(line string) error
	ResetHistory()

	Close() error
}

// lineEditor adapts *readline.Instance to LineReader.
type lineEditor struct {
	*readline.Instance
}

var _ LineReader = lineEditor{}

func (e lineEditor) SaveHistory(line string) error {
	return e.Operation.SaveHistory(line)
}

func (e lineEditor) ResetHistory() {
	e.Operation.ResetHistory()
}

// Options configure a new shell.
type Options struct {
	Config *config.Configuration

	// Fs is used for the history file, the env file and builtin output
	// redirection. Defaults to the OS filesystem.
	Fs afero.Fs

	// HistoryFile overrides the configured history file.
	HistoryFile string

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// newLauncher is replaced in tests.
var newLauncher = launcher.New

// Shell is the interactive interpreter state shared by every built-in.
type Shell struct {
	Config   *config.Configuration
	Readline LineReader
	History  *history.Ring
	Launcher *launcher.Launcher
	Signals  *signals.Coordinator
	Parser   shell.Parser
	Fs       afero.Fs

	Stdout io.Writer
	Stderr io.Writer
	Log    *log.Logger

	Home        string
	HistoryPath string
	User        string
	Hostname    string

	// PrevDir is where `cd -` goes. It stays empty until a cd succeeds.
	PrevDir string

	lastRet int

	// Set to true to quit the shell
	Quit bool
}

var _ signals.Display = (*Shell)(nil)

// NewShell sets up a shell reading from a terminal line editor. History is
// loaded from the history file; failing to read it is only a warning.
func NewShell(opts Options) (*Shell, error) {
	s, err := newShell(opts)
	if err != nil {
		return nil, err
	}

	cfg := &readline.Config{
		Stdin:                  readline.NewCancelableStdin(opts.Stdin),
		Stdout:                 opts.Stdout,
		Stderr:                 opts.Stderr,
		HistoryLimit:           s.Config.HistorySize,
		DisableAutoSaveHistory: true,
		FuncGetWidth: func() int {
			width, _, err := term.GetSize(int(opts.Stdout.Fd()))
			if err != nil {
				return 80
			}
			return width
		},
		FuncIsTerminal: func() bool {
			return term.IsTerminal(int(opts.Stdin.Fd()))
		},
	}

	if err := cfg.Init(); err != nil {
		s.SaveHistory()
		return nil, err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		s.SaveHistory()
		return nil, err
	}
	editor := lineEditor{rl}
	s.Readline = editor

	for _, line := range s.History.Entries() {
		_ = editor.SaveHistory(line)
	}

	return s, nil
}

// newShell builds everything but the line editor.
func newShell(opts Options) (*Shell, error) {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	cfg := opts.Config
	s := &Shell{
		Config: cfg,
		Fs:     opts.Fs,
		Parser: shell.Parser{MaxArgs: cfg.MaxArgs},
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
		Log:    log.New(opts.Stderr, cfg.ShellName+": ", 0),
	}

	home, err := HomeDir(s.Log)
	if err != nil {
		return nil, err
	}
	s.Home = home

	s.User, s.Hostname = currentUser(), hostname()

	s.HistoryPath = opts.HistoryFile
	if s.HistoryPath == "" {
		s.HistoryPath = cfg.HistoryPath(home)
	}
	s.History = history.New(cfg.HistorySize)
	if err := s.History.Load(s.Fs, s.HistoryPath); err != nil {
		s.Log.Printf("couldn't load history from %s: %v", s.HistoryPath, err)
	}

	env := os.Environ()
	if path := cfg.EnvPath(home); path != "" {
		extra, err := config.ReadEnvFile(s.Fs, path)
		if err != nil {
			s.Log.Printf("couldn't load environment from %s: %v", path, err)
		}
		env = mergeEnv(env, extra)
	}

	s.Signals = signals.New(s, s.Log)

	s.Launcher, err = newLauncher(s.Signals)
	if err != nil {
		s.SaveHistory()
		return nil, err
	}
	s.Launcher.Stdin = opts.Stdin
	s.Launcher.Stdout = opts.Stdout
	s.Launcher.Stderr = opts.Stderr
	s.Launcher.Env = env

	return s, nil
}

// HomeDir finds the user's home directory, falling back to the working
// directory. The fallback is reported to logger.
func HomeDir(logger *log.Logger) (string, error) {
	u, err := user.Current()
	if err == nil && u.HomeDir != "" {
		return u.HomeDir, nil
	}
	logger.Printf("failed to get home directory for user %d", os.Getuid())

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return wd, nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return ""
}

func hostname() string {
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return ""
}

// Run the interactive loop until `exit` or end of input. Signal handling is
// active for the duration of the loop, history is saved when it ends.
func (s *Shell) Run() int {
	s.Signals.Start()
	defer s.Signals.Stop()

	if s.Config.Banner != "" {
		fmt.Fprintln(s.Stdout, s.Config.Banner)
	}

	status := 0
	for !s.Quit {
		s.Readline.SetPrompt(s.Prompt())
		line, err := s.Readline.Readline()

		switch {
		case err == io.EOF:
			// Input closed, quit.
			fmt.Fprintln(s.Stdout, "exit")
			s.Quit = true

		case errors.Is(err, readline.ErrInterrupt):
			// Interrupt clears line.
			continue

		case err != nil:
			s.Log.Printf("error reading input: %v", err)
			status = 1
			s.Quit = true

		default:
			s.RunLine(line)
		}
	}

	s.SaveHistory()
	return status
}

// RunLine parses and executes a single line. Only lines that parse are
// recorded in the history.
func (s *Shell) RunLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	cmd, err := s.Parser.Parse(line)
	if err != nil {
		fmt.Fprintf(s.Stderr, "bropesh: %v\n", err)
		s.lastRet = 2
		return
	}
	if cmd == nil {
		return
	}

	if s.History.Append(line) && s.Readline != nil {
		_ = s.Readline.SaveHistory(line)
	}

	s.lastRet = s.execute(cmd)
}

// LastStatus is the exit status of the most recent command.
func (s *Shell) LastStatus() int {
	return s.lastRet
}

func (s *Shell) execute(cmd *shell.Command) int {
	if builtin, ok := AllBuiltins[cmd.Name()]; ok {
		return s.runBuiltin(builtin, cmd)
	}

	outcome := s.Launcher.Launch(cmd)
	if outcome.Kind == launcher.SpawnFailed {
		return 1
	}
	return outcome.Status
}

// runBuiltin runs a builtin in the shell process. Input redirection and the
// background marker have no effect on builtins, output redirection does.
func (s *Shell) runBuiltin(builtin ShellBuiltin, cmd *shell.Command) int {
	ec := execContext{
		stdout: s.Stdout,
		stderr: s.Stderr,
		args:   cmd.Args,
	}

	if cmd.OutputFile != "" {
		fd, err := s.Fs.OpenFile(cmd.OutputFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			fmt.Fprintf(s.Stderr, "bropesh: failed to open output file: %v\n", err)
			return 1
		}
		defer fd.Close()
		ec.stdout = fd
	}

	return builtin.Main(s, ec)
}

// SaveHistory writes the history ring to the history file.
func (s *Shell) SaveHistory() {
	if err := s.History.Save(s.Fs, s.HistoryPath); err != nil {
		s.Log.Printf("couldn't save history to %s: %v", s.HistoryPath, err)
	}
}

// Close releases the line editor.
func (s *Shell) Close() error {
	if s.Readline == nil {
		return nil
	}
	return s.Readline.Close()
}

// Interrupted moves to a fresh line after an interrupt.
func (s *Shell) Interrupted() {
	fmt.Fprintln(s.notices())
}

// BackgroundDone reports a finished background child.
func (s *Shell) BackgroundDone(pid int, _ unix.WaitStatus) {
	fmt.Fprintf(s.notices(), "background process %d finished.\n", pid)
}

// notices is where asynchronous messages go, the line editor redraws the
// prompt after writing them.
func (s *Shell) notices() io.Writer {
	if s.Readline != nil {
		return s.Readline
	}
	return s.Stdout
}
