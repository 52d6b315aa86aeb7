package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	getopt "github.com/pborman/getopt/v2"
)

// execContext holds the streams and arguments a builtin runs with.
type execContext struct {
	stdout io.Writer
	stderr io.Writer

	// args contains the CLI arguments for the command
	args []string
}

// SimpleCommand is a builtin described by a getopt flag set.
type SimpleCommand struct {
	// Use holds a one line usage string
	Use string
	// Short holds a sone line description of the command.
	Short string
	// ShowHelp sets whether help is displayed or not.
	// If this is non-nil when Run() is called, then the default help flag isn't
	// added.
	ShowHelp *bool

	flags *getopt.Set
}

// Flags gets the command's flag set.
func (s *SimpleCommand) Flags() *getopt.Set {
	if s.flags == nil {
		s.flags = getopt.New()
	}

	return s.flags
}

// PrintHelp writes help for the command to the given writer.
func (s *SimpleCommand) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, s.Use)
	fmt.Fprintln(w, s.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	s.Flags().PrintOptions(w)
}

// Run the command, if flag parsing was succcessful call the callback.
func (s *SimpleCommand) Run(ec execContext, callback func() int) int {
	opts := s.Flags()

	// Add help flag if not overridden.
	if s.ShowHelp == nil {
		s.ShowHelp = opts.BoolLong("help", 'h', "show this help and exit")
	}

	if err := opts.Getopt(ec.args, nil); err != nil {
		fmt.Fprintf(ec.stderr, "bropesh: %s: %s\n\n", ec.args[0], err)
		s.PrintHelp(ec.stderr)
		return 1
	}

	if *s.ShowHelp {
		s.PrintHelp(ec.stdout)
		return 0
	}

	return callback()
}

var (
	ColorBoldCyan   = color.New(color.FgCyan, color.Bold)
	ColorBoldGreen  = color.New(color.FgGreen, color.Bold)
	ColorBoldYellow = color.New(color.FgYellow, color.Bold)
)
