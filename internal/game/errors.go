package game

import "errors"

// §7's error taxonomy, modeled as wrapped sentinel kinds instead of bare
// strings so Dispatch can decide how to render an error
// (Error(msg) vs. log-and-drop for Internal) with errors.Is, not string
// matching.
var (
	ErrKindProtocol = errors.New("protocol error")
	ErrKindState    = errors.New("state error")
	ErrKindNotFound = errors.New("not found")
	ErrKindDownload = errors.New("download error")
	ErrKindInternal = errors.New("internal error")
)

// GameError pairs a client-facing message with the error kind that produced
// it. The message is exactly the string §4 specifies for that failure —
// transports render it verbatim via ErrMsg.
type GameError struct {
	Kind error
	Msg  string
}

func (e *GameError) Error() string { return e.Msg }
func (e *GameError) Unwrap() error { return e.Kind }

func newProtocolError(msg string) *GameError { return &GameError{Kind: ErrKindProtocol, Msg: msg} }
func newStateError(msg string) *GameError    { return &GameError{Kind: ErrKindState, Msg: msg} }
func newNotFoundError(msg string) *GameError { return &GameError{Kind: ErrKindNotFound, Msg: msg} }
func newDownloadError(msg string) *GameError { return &GameError{Kind: ErrKindDownload, Msg: msg} }
func newInternalError(msg string) *GameError { return &GameError{Kind: ErrKindInternal, Msg: msg} }
