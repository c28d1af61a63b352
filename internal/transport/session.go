package transport

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/VirusBLITZ/guess-the-song-backend/internal/catalog"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/game"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/logging"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/metrics"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/ratelimit"
)

const (
	pingPeriod = 10 * time.Second // §4.1: "a ping every 10 s"
	pongWait   = 20 * time.Second // §4.1: "timeout after 20 s of silence"
	writeWait  = 10 * time.Second

	greetingBanner = "guess-the-song-backend v1 (MIT)"
	songRoutePath  = "/songs"
)

// wsConnection narrows *websocket.Conn to what Session needs, the same way
// the teacher's session package narrows it for testability.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
}

// Session is one client's connection (C1). It implements game.Sender so the
// core package can deliver messages without knowing about WebSockets.
type Session struct {
	conn        wsConnection
	send        chan game.ServerMessage
	done        chan struct{} // closed once by readPump; never send closes it
	user        *game.User
	registry    *game.Registry
	catalog     *catalog.Adapter
	rateLimiter *ratelimit.RateLimiter
}

// Send implements game.Sender. It never blocks: a full buffer means the
// client is not draining fast enough, and the message is dropped rather
// than stalling the room (§5: "non-blocking in practice"). The round engine
// broadcasts to a player snapshot outside the registry lock, so Send can
// race with this connection's own shutdown; unlike the teacher's send
// channel, s.send is never closed, so that race can only drop a message,
// never panic on a send to a closed channel.
func (s *Session) Send(msg game.ServerMessage) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.send <- msg:
	default:
		logging.Warn(context.Background(), "session send buffer full, dropping message")
	}
}

// readPump parses inbound "<verb> <payload>" lines (§4.1) and dispatches
// them to the core. On read error (close, timeout, protocol violation) it
// submits a synthetic leave so room state cleans up deterministically.
func (s *Session) readPump() {
	ctx := context.Background()
	defer func() {
		game.Dispatch(ctx, s.registry, s.catalog, s.user, game.ActionLeave, "")
		s.user.SetSend(nil)
		s.conn.Close()
		close(s.done)
		metrics.ActiveWebSocketConnections.Dec()
	}()

	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		verb, payload, _ := strings.Cut(strings.TrimRight(string(data), "\r\n"), " ")
		action := parseAction(verb)

		if s.rateLimiter != nil && isRateLimited(action) {
			if err := s.rateLimiter.CheckCommand(ctx, s.connectionKey()); err != nil {
				s.Send(game.ErrMsg{Message: "rate limit exceeded"})
				continue
			}
		}

		game.Dispatch(ctx, s.registry, s.catalog, s.user, action, payload)
	}
}

// connectionKey identifies this connection to the command rate limiter;
// there is no authentication in this system, so the user id is a stable
// enough per-connection key for the lifetime of the socket.
func (s *Session) connectionKey() string {
	return strconv.FormatUint(uint64(s.user.ID()), 10)
}

// isRateLimited restricts the command limiter to the verbs that can hammer
// the catalog adapter or the round engine (§4.5); cheap verbs like leave or
// ready_up are not throttled.
func isRateLimited(a game.Action) bool {
	switch a {
	case game.ActionSuggest, game.ActionAdd, game.ActionGuess:
		return true
	default:
		return false
	}
}

// parseAction maps a wire verb to the closed action set (§6); anything
// unrecognized becomes ActionInvalid, which Dispatch turns into
// Error("Invalid Action").
func parseAction(verb string) game.Action {
	switch game.Action(verb) {
	case game.ActionSetUsername, game.ActionNew, game.ActionJoin, game.ActionReadyUp,
		game.ActionUnready, game.ActionStart, game.ActionSuggest, game.ActionAdd,
		game.ActionRemove, game.ActionStartGuessing, game.ActionGuess, game.ActionLeave:
		return game.Action(verb)
	default:
		return game.ActionInvalid
	}
}

// writePump renders outbound ServerMessages to wire lines and also drives
// the 10 s ping heartbeat (§4.1). It sends the two-line greeting banner
// first, per §6.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	if err := s.writeLine(greetingBanner); err != nil {
		return
	}
	if err := s.writeLine("song_route " + songRoutePath); err != nil {
		return
	}

	for {
		select {
		case msg := <-s.send:
			if err := s.writeLine(encode(msg)); err != nil {
				return
			}

		case <-s.done:
			// Drain whatever readPump's own ActionLeave dispatch already
			// queued (e.g. a final UserLeave broadcast to the rest of the
			// room) before sending the close frame.
			for {
				select {
				case msg := <-s.send:
					_ = s.writeLine(encode(msg))
				default:
					_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
					_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) writeLine(line string) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		logging.Warn(context.Background(), "write failed, closing session", zap.Error(err))
		return err
	}
	return nil
}
