package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/pairs/internal/game"
	"github.com/robalobadob/pairs/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
)

// inbound is a client command: {"type":"play"} or {"type":"click","index":n}.
type inbound struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

func (m inbound) event() (session.Event, bool) {
	switch m.Type {
	case "play":
		return session.PlayAgainRequested{}, true
	case "click":
		return session.TileClicked{Index: m.Index}, true
	}
	return nil, false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || origin == s.cfg.ClientOrigin || origin == "http://"+r.Host || origin == "https://"+r.Host
}

// handleWS upgrades the connection and streams the session's effects to it.
// A render_board effect with the current state is queued first so a client
// that connects mid-round can draw the board.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	hub, ok := sess.Sink().(*Hub)
	if !ok {
		http.Error(w, `{"error":"no_stream"}`, http.StatusInternalServerError)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("websocket upgrade")
		return
	}
	logger := hlog.FromRequest(r).With().Str("session", sess.ID).Logger()

	c := hub.register()
	defer hub.unregister(c)

	if snap, err := sess.Snapshot(r.Context()); err == nil {
		if b, err := json.Marshal(stateEffect(snap)); err == nil {
			c.send <- b
		}
	}

	go writePump(conn, c, sess.Done(), logger)
	readPump(r, conn, sess, logger)
}

func stateEffect(snap game.Snapshot) game.Effect {
	return game.Effect{
		Type:    game.EffectRenderBoard,
		Round:   snap.Round,
		Tiles:   snap.Tiles,
		Seconds: snap.Elapsed,
	}
}

// readPump decodes client commands and dispatches them until the socket fails.
func readPump(r *http.Request, conn *websocket.Conn, sess *session.Session, logger zerolog.Logger) {
	defer conn.Close()

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Msg("websocket read")
			}
			return
		}
		ev, ok := msg.event()
		if !ok {
			logger.Debug().Str("type", msg.Type).Msg("unknown websocket command")
			continue
		}
		if err := sess.Dispatch(r.Context(), ev); err != nil {
			logger.Debug().Err(err).Msg("dispatch from websocket")
			return
		}
	}
}

// writePump drains the client's queue and keeps the connection alive with pings.
// It closes the socket when the session stops.
func writePump(conn *websocket.Conn, c *hubClient, done <-chan struct{}, logger zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug().Err(err).Msg("websocket write")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
			return
		}
	}
}
