package main

import (
	"flutterctl/internal/domain"
)

type exitError struct {
	code    int
	message string
	silent  bool
}

func (e exitError) Error() string {
	return e.message
}

// exitSilent sets the exit code without printing anything beyond what the
// command already wrote.
func exitSilent(code int) error {
	return exitError{code: code, silent: true}
}

// exitCodeFor maps domain failures onto stable exit codes so scripts can
// branch on them.
func exitCodeFor(err error) int {
	code, ok := domain.CodeFrom(err)
	if !ok {
		return 1
	}
	switch code {
	case domain.CodeInvalidArgument:
		return 2
	case domain.CodeNotFound:
		return 3
	case domain.CodeFailedPrecond:
		return 4
	case domain.CodeUnavailable:
		return 5
	default:
		return 1
	}
}

func asExitError(err error) error {
	if err == nil {
		return nil
	}
	return exitError{code: exitCodeFor(err), message: err.Error()}
}
