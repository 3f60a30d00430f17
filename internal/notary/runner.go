package notary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes one argv in dir and returns its captured output streams.
// Implementations never route argv through a shell.
type Runner interface {
	Run(ctx context.Context, dir string, argv []string) (stdout, stderr string, err error)
}

// ExecRunner runs commands as local child processes.
type ExecRunner struct {
	Env []string
}

// Run executes argv with exec.CommandContext.
func (r ExecRunner) Run(ctx context.Context, dir string, argv []string) (string, string, error) {
	if len(argv) == 0 {
		return "", "", errors.New("empty command")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), stderr.String(), fmt.Errorf("run %s: %w", argv[0], err)
	}
	return stdout.String(), stderr.String(), nil
}

// SplitCommand tokenizes a configured command line, honouring single and
// double quotes and backslash escapes.
func SplitCommand(command string) ([]string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, nil
	}
	var (
		tokens   []string
		current  strings.Builder
		inSingle bool
		inDouble bool
		escape   bool
		quoted   bool
	)

	flush := func() {
		if current.Len() > 0 || quoted {
			tokens = append(tokens, current.String())
			current.Reset()
		}
		quoted = false
	}

	for _, r := range command {
		switch {
		case escape:
			current.WriteRune(r)
			escape = false
		case r == '\\' && !inSingle:
			escape = true
		case r == '\'' && !inDouble:
			inSingle = !inSingle
			quoted = true
		case r == '"' && !inSingle:
			inDouble = !inDouble
			quoted = true
		case (r == ' ' || r == '\t' || r == '\n' || r == '\r') && !inSingle && !inDouble:
			flush()
		default:
			current.WriteRune(r)
		}
	}

	if escape || inSingle || inDouble {
		return nil, fmt.Errorf("unterminated quoted string in command: %s", command)
	}
	flush()
	return tokens, nil
}
