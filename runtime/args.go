package runtime

import (
	"errors"
	"fmt"

	"github.com/mattn/go-shellwords"
)

var (
	// ErrUnterminatedQuote is returned by SplitArgs for an unclosed quote or
	// a dangling escape.
	ErrUnterminatedQuote = errors.New("unterminated quote")

	// ErrShellOperator is returned by SplitArgs when the line contains an
	// unquoted ; & | < or >. Arguments never pass through a shell.
	ErrShellOperator = errors.New("shell operators are not supported")
)

// SplitArgs splits a command line into arguments using POSIX-like quoting.
// Environment variables and backticks are left unexpanded.
func SplitArgs(s string) ([]string, error) {
	p := shellwords.NewParser()
	p.ParseEnv = false
	p.ParseBacktick = false

	args, err := p.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnterminatedQuote, err)
	}
	if p.Position >= 0 {
		return nil, fmt.Errorf("%w: at offset %d", ErrShellOperator, p.Position)
	}
	return args, nil
}
