package board

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCommand - client sent verb which is absent in command table.
	ErrUnknownCommand = errors.New("board: unknown command")

	// ErrBadArguments - command got wrong number of arguments or argument is malformed.
	ErrBadArguments = errors.New("board: invalid arguments")

	// ErrGroupNotFound - group identifier resolves neither to name nor to alias.
	ErrGroupNotFound = errors.New("board: group not found")

	// ErrNotMember - user is not a member of the group.
	ErrNotMember = errors.New("board: not a member")

	// ErrAlreadyMember - user is a member of the group already.
	ErrAlreadyMember = errors.New("board: already a member")

	// ErrCannotAccess - message index is below user's cutoff.
	ErrCannotAccess = errors.New("board: message cannot be accessed")

	// ErrNoSuchMessage - message index is not less than bulletin length.
	ErrNoSuchMessage = errors.New("board: message does not exist")

	// ErrSessionClosed - session can't communicate with its peer anymore.
	ErrSessionClosed = errors.New("board: session closed")

	// ErrServerClosed - returns by Serve after Shutdown.
	ErrServerClosed = errors.New("board: server closed")
)

// ArgumentsError - describes command which got invalid arguments.
type ArgumentsError struct {
	Verb string
}

func (e *ArgumentsError) Error() string {
	return fmt.Sprintf("board: invalid arguments for %q", e.Verb)
}

// Is - makes ArgumentsError matchable with ErrBadArguments.
func (e *ArgumentsError) Is(target error) bool {
	return target == ErrBadArguments
}

// GroupNotFoundError - describes group identifier which failed to resolve.
type GroupNotFoundError struct {
	ID string
}

func (e *GroupNotFoundError) Error() string {
	return fmt.Sprintf("board: group %q not found", e.ID)
}

// Is - makes GroupNotFoundError matchable with ErrGroupNotFound.
func (e *GroupNotFoundError) Is(target error) bool {
	return target == ErrGroupNotFound
}
