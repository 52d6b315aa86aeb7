// Package shell turns an input line into a Command.
//
// Parsing happens in two passes. Lex breaks the line into raw tokens: words
// are separated by spaces and tabs, and a double quote toggles a mode in which
// whitespace is literal. The quote characters themselves are dropped and an
// unterminated quote runs to the end of the line. Parse then classifies the
// raw tokens left to right, pulling out the redirection operators (< and >)
// and their targets and the trailing background marker (&).
package shell

import (
	"strings"
)

const (
	// DefaultMaxArgs is the largest argument vector a Command may carry.
	DefaultMaxArgs = 64

	opBackground = "&"
	opInput      = "<"
	opOutput     = ">"
)

// Command is a single parsed command line.
type Command struct {
	// Args holds the program name followed by its arguments.
	Args []string
	// InputFile, if non-empty, is bound to the program's stdin.
	InputFile string
	// OutputFile, if non-empty, is created or truncated and bound to stdout.
	OutputFile string
	// Background is set if the line ended with &.
	Background bool
}

// Name returns the program name, or the empty string for an empty command.
func (c *Command) Name() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[0]
}

// String renders the command back into a line that parses to the same value.
func (c *Command) String() string {
	var parts []string
	for _, arg := range c.Args {
		parts = append(parts, quoteIfNeeded(arg))
	}
	if c.InputFile != "" {
		parts = append(parts, opInput, quoteIfNeeded(c.InputFile))
	}
	if c.OutputFile != "" {
		parts = append(parts, opOutput, quoteIfNeeded(c.OutputFile))
	}
	if c.Background {
		parts = append(parts, opBackground)
	}
	return strings.Join(parts, " ")
}

func quoteIfNeeded(s string) string {
	switch {
	case s == "", strings.ContainsAny(s, " \t"), s == opBackground, s == opInput, s == opOutput:
		return `"` + s + `"`
	default:
		return s
	}
}

// Token is a raw word produced by Lex.
type Token struct {
	Value string
	// Quoted is set if any part of the word was inside double quotes. Quoted
	// words are never treated as operators.
	Quoted bool
}

func isBlank(r rune) bool {
	return r == ' ' || r == '\t'
}

// Lex splits line into raw tokens.
func Lex(line string) []Token {
	var (
		tokens  []Token
		current strings.Builder
		inWord  bool
		quoted  bool
		inQuote bool
	)

	flush := func() {
		if inWord {
			tokens = append(tokens, Token{Value: current.String(), Quoted: quoted})
		}
		current.Reset()
		inWord = false
		quoted = false
	}

	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			inWord = true
			quoted = true
		case isBlank(r) && !inQuote:
			flush()
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	flush()

	return tokens
}

// Parser classifies raw tokens into a Command.
type Parser struct {
	// MaxArgs limits the number of arguments, DefaultMaxArgs is used if zero.
	MaxArgs int
}

// Parse parses line with the default argument limit.
func Parse(line string) (*Command, error) {
	return (&Parser{}).Parse(line)
}

// Parse parses line. A line holding nothing but whitespace results in a nil
// Command and a nil error, and should be ignored by the caller.
func (p *Parser) Parse(line string) (*Command, error) {
	tokens := Lex(line)
	if len(tokens) == 0 {
		return nil, nil
	}

	maxArgs := p.MaxArgs
	if maxArgs <= 0 {
		maxArgs = DefaultMaxArgs
	}

	cmd := &Command{}
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		op := ""
		if !tok.Quoted {
			op = tok.Value
		}

		switch op {
		case opBackground:
			if i != len(tokens)-1 {
				return nil, newParseError(ErrDanglingBackground, op, i)
			}
			cmd.Background = true

		case opInput, opOutput:
			if i+1 >= len(tokens) {
				return nil, newParseError(ErrMissingTarget, op, i)
			}
			target := &cmd.InputFile
			dup := ErrMultipleInput
			if op == opOutput {
				target = &cmd.OutputFile
				dup = ErrMultipleOutput
			}
			if *target != "" {
				return nil, newParseError(dup, op, i)
			}
			// The target is used verbatim, even if it looks like an operator.
			i++
			*target = tokens[i].Value
			// An empty quoted target ("") is as good as no target at all.
			if *target == "" {
				return nil, newParseError(ErrMissingTarget, op, i-1)
			}

		default:
			if len(cmd.Args) >= maxArgs {
				return nil, &ParseError{Kind: ErrTooManyArguments, Token: tok.Value, Position: i, Limit: maxArgs}
			}
			cmd.Args = append(cmd.Args, tok.Value)
		}
	}

	if len(cmd.Args) == 0 {
		return nil, newParseError(ErrMissingCommand, "", 0)
	}

	return cmd, nil
}
