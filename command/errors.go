package command

import "fmt"

type ErrorKind int

const (
	KindInvalidCommandArgs ErrorKind = iota + 1
)

// CommandError is returned by a handler whose arguments are unusable. Its message is
// shown to the user as is.
type CommandError struct {
	Kind    ErrorKind
	Command string
	Message string
}

func newUsageError(command, message string) *CommandError {
	return &CommandError{Kind: KindInvalidCommandArgs, Command: command, Message: message}
}

func (e *CommandError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("invalid arguments for %s", e.Command)
}
