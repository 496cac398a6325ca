package firesync

import "errors"

var (
	// ErrProtocolViolation flags a write into a reserved namespace that
	// is not a whole-object assignment of the user location. This is a
	// programming error on the producer side, never a store condition.
	ErrProtocolViolation = errors.New("firesync: illegal write under a reserved path")

	// ErrUnknownReservedPath flags a read of a $-prefixed location with
	// no backing namespace.
	ErrUnknownReservedPath = errors.New("firesync: unknown reserved path")

	// ErrInvalidArgument flags a malformed child subpath.
	ErrInvalidArgument = errors.New("firesync: invalid path argument")
)
