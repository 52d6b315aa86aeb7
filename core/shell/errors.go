package shell

import (
	"errors"
	"fmt"
)

var (
	// ErrDanglingBackground is returned when & appears anywhere but last.
	ErrDanglingBackground = errors.New("'&' must be the last argument")
	// ErrMultipleInput is returned when a line redirects stdin twice.
	ErrMultipleInput = errors.New("multiple input files specified")
	// ErrMultipleOutput is returned when a line redirects stdout twice.
	ErrMultipleOutput = errors.New("multiple output files specified")
	// ErrMissingTarget is returned when < or > has nothing after it.
	ErrMissingTarget = errors.New("missing redirection target")
	// ErrTooManyArguments is returned when the argument limit is exceeded.
	ErrTooManyArguments = errors.New("too many arguments")
	// ErrMissingCommand is returned for lines made only of operators and
	// redirections, like "< in.txt" or "&".
	ErrMissingCommand = errors.New("missing command")
)

// ParseError describes why a line was rejected.
type ParseError struct {
	// Kind is one of the Err* sentinels in this package.
	Kind error
	// Token is the operator or word that triggered the error.
	Token string
	// Position is the index of Token among the raw tokens.
	Position int
	// Limit is the argument limit for ErrTooManyArguments.
	Limit int
}

func newParseError(kind error, token string, pos int) *ParseError {
	return &ParseError{Kind: kind, Token: token, Position: pos}
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case ErrMissingTarget:
		if e.Token == opInput {
			return "syntax error: no input file specified after '<'"
		}
		return "syntax error: no output file specified after '>'"
	case ErrTooManyArguments:
		return fmt.Sprintf("too many arguments. maximum %d", e.Limit)
	case ErrDanglingBackground, ErrMissingCommand:
		return fmt.Sprintf("syntax error: %v", e.Kind)
	default:
		return fmt.Sprintf("redirection error: %v", e.Kind)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}
