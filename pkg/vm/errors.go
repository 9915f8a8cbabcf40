package vm

import "errors"

// Every error produced while translating wraps one of these, so callers can
// classify failures with errors.Is. All of them end the run.
var (
	ErrMalformedCommand     = errors.New("malformed command")
	ErrUnknownCommand       = errors.New("unknown command")
	ErrInvalidSegment       = errors.New("invalid segment")
	ErrInvalidPointerIndex  = errors.New("invalid pointer index")
	ErrInvalidLabelFormat   = errors.New("invalid label format")
	ErrUnknownArithmeticOp  = errors.New("unknown arithmetic operation")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrIndexOutOfRange      = errors.New("index out of range")
	ErrInvalidState         = errors.New("invalid parser state")
	ErrInput                = errors.New("input error")
)
