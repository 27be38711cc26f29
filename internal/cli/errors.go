package cli

import "errors"

// Error variables for command handling.
var (
	ErrUsage          = errors.New("wrong number of arguments")
	ErrUnknownCommand = errors.New("unknown command")
	ErrVerifyFailed   = errors.New("verification failed")
	ErrInterrupted    = errors.New("interrupted")
	ErrShellFailed    = errors.New("shell commands failed")
)
