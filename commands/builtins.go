package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

// ShellBuiltin is a command run inside the shell process.
type ShellBuiltin interface {
	Main(s *Shell, ec execContext) int
}

// ShellBuiltinFunc adapts a plain function to ShellBuiltin.
type ShellBuiltinFunc func(s *Shell, ec execContext) int

func (f ShellBuiltinFunc) Main(s *Shell, ec execContext) int {
	return f(s, ec)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// ListBuiltins returns the names of the builtins in sorted order.
func ListBuiltins() []string {
	var names []string
	for name := range AllBuiltins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cd is the cd shell builtin
func Cd(s *Shell, ec execContext) int {
	oldwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(ec.stderr, "bropesh: cd: %v\n", err)
		return 1
	}

	var target string
	showTarget := false
	switch {
	case len(ec.args) > 2:
		fmt.Fprintln(ec.stderr, "bropesh: cd: too many arguments.")
		return 1
	case len(ec.args) == 1, ec.args[1] == "~":
		target = s.Home
	case ec.args[1] == "-":
		if s.PrevDir == "" {
			fmt.Fprintln(ec.stderr, "bropesh: cd: no previous directory.")
			return 1
		}
		target = s.PrevDir
		showTarget = true
	default:
		target = ec.args[1]
	}

	if err := os.Chdir(target); err != nil {
		fmt.Fprintf(ec.stderr, "bropesh: cd: %v\n", err)
		return 1
	}
	if showTarget {
		fmt.Fprintln(ec.stdout, target)
	}

	s.PrevDir = oldwd
	return 0
}

// Pwd prints the working directory.
func Pwd(s *Shell, ec execContext) int {
	if len(ec.args) > 1 {
		fmt.Fprintln(ec.stderr, "bropesh: pwd: too many arguments")
		return 1
	}

	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(ec.stderr, "bropesh: pwd: %v\n", err)
		return 1
	}
	fmt.Fprintln(ec.stdout, wd)
	return 0
}

// Echo writes its arguments separated by single spaces.
func Echo(s *Shell, ec execContext) int {
	fmt.Fprintln(ec.stdout, strings.Join(ec.args[1:], " "))
	return 0
}

// History lists or clears the command history.
func History(s *Shell, ec execContext) int {
	cmd := &SimpleCommand{
		Use:   "history [-c] [-n COUNT]",
		Short: "Display the history list with line numbers, or clear it.",
	}

	opts := cmd.Flags()
	clearAll := opts.Bool('c', "clear the history by deleting all entries")
	count := opts.Int('n', s.Config.HistoryDisplay, "number of entries to show", "COUNT")

	return cmd.Run(ec, func() int {
		if len(opts.Args()) > 0 {
			fmt.Fprintln(ec.stderr, "bropesh: history: too many arguments")
			return 1
		}

		if *clearAll {
			s.History.Clear()
			if s.Readline != nil {
				s.Readline.ResetHistory()
			}
			return 0
		}

		if *count < 1 {
			fmt.Fprintf(ec.stderr, "bropesh: history: invalid count %d\n", *count)
			return 1
		}

		entries := s.History.Recent(*count)
		if len(entries) == 0 {
			fmt.Fprintln(ec.stdout, "no commands in history.")
			return 0
		}
		for i, line := range entries {
			fmt.Fprintf(ec.stdout, " %d  %s\n", i+1, line)
		}
		return 0
	})
}

const helpText = `
--- bropesh help ---
Type program names and arguments, and hit enter.
The following commands are built-in:
  cd [dir]    : Change directory (supports ~, .., -)
  pwd         : Print current working directory
  echo [arg]  : Display text
  history     : Display recent commands (-c to clear, -n COUNT)
  help        : Display this information
  exit        : Exit the shell

Supported features:
  - External commands (e.g., ls, grep)
  - I/O redirection (< input_file, > output_file)
  - Background execution (end command with &)
--------------------

`

// Help prints the built-in reference.
func Help(s *Shell, ec execContext) int {
	fmt.Fprint(ec.stdout, helpText)
	return 0
}

// Exit quits the shell, history is saved once the loop ends.
func Exit(s *Shell, ec execContext) int {
	s.Quit = true
	return 0
}

func init() {
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["pwd"] = ShellBuiltinFunc(Pwd)
	AllBuiltins["echo"] = ShellBuiltinFunc(Echo)
	AllBuiltins["history"] = ShellBuiltinFunc(History)
	AllBuiltins["help"] = ShellBuiltinFunc(Help)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
}
