package main

import "composer/internal/domain"

type exitError struct {
	code    int
	message string
	silent  bool
}

func (e exitError) Error() string {
	return e.message
}

func exitWith(code int, message string) error {
	return exitError{code: code, message: message}
}

// exitCodeFor maps an error code to the process exit status.
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
	case domain.CodeAlreadyExists:
		return 4
	case domain.CodeUnavailable:
		return 5
	default:
		return 1
	}
}
