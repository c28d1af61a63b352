package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// fakeConn is a minimal wsConnection test double: readMessages is drained in
// order by ReadMessage, then every subsequent call returns an error (as a
// real closed socket would), which lets readPump's defer (synthetic leave)
// run deterministically in tests.
type fakeConn struct {
	mu            sync.Mutex
	readMessages  [][]byte
	readIdx       int
	written       []string
	closed        bool
	pongHandler   func(string) error
}

func newFakeConn(lines ...string) *fakeConn {
	msgs := make([][]byte, 0, len(lines))
	for _, l := range lines {
		msgs = append(msgs, []byte(l))
	}
	return &fakeConn{readMessages: msgs}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readIdx >= len(f.readMessages) {
		return 0, nil, websocket.ErrCloseSent
	}
	msg := f.readMessages[f.readIdx]
	f.readIdx++
	return websocket.TextMessage, msg, nil
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if messageType == websocket.TextMessage {
		f.written = append(f.written, string(data))
	}
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (f *fakeConn) SetWriteDeadline(t time.Time) error { return nil }
func (f *fakeConn) SetPongHandler(h func(string) error) {
	f.pongHandler = h
}

func (f *fakeConn) writtenLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.written))
	copy(out, f.written)
	return out
}
