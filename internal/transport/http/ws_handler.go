package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/vovakirdan/gridverse/internal/config"
	"github.com/vovakirdan/gridverse/internal/core"
	"github.com/vovakirdan/gridverse/internal/proto"
	"github.com/vovakirdan/gridverse/internal/utils"
)

// errJoinRejected ends a connection whose handshake failed.
var errJoinRejected = errors.New("join rejected")

// WSHandler upgrades HTTP connections and bridges them to core.Session.
type WSHandler struct {
	hub             *core.Hub
	log             *zerolog.Logger
	sendBuffer      int
	maxMessageBytes int64
	maxPerMinute    int
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		hub:             hub,
		log:             logger,
		sendBuffer:      cfg.SendBuffer,
		maxMessageBytes: cfg.MaxMessageBytes,
		maxPerMinute:    cfg.MaxMessagesPerMinute,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	session := core.NewSession(utils.NewID(), h.sendBuffer)
	counters := h.hub.Metrics()
	counters.IncConnectionsOpened()
	defer counters.IncConnectionsClosed()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	// Deregister before the handler returns so presence is never stale.
	h.hub.Disconnect(session)

	if errors.Is(err, errJoinRejected) {
		h.log.Info().Err(err).Str("conn_id", session.ID).Msg("join rejected, closing")
		conn.Close(websocket.StatusPolicyViolation, "")
		return
	}

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "internal error"
			h.log.Warn().Err(err).Str("conn_id", session.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	limiter := newRateLimiter(h.maxPerMinute)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		if !limiter.allow(time.Now()) {
			h.hub.Metrics().IncRateLimited()
			continue
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.log.Debug().Err(err).Str("conn_id", session.ID).Msg("dropping malformed inbound")
			continue
		}

		cmd, err := inboundToCommand(inbound)
		if err != nil {
			if core.IsFatal(err) && !session.Joined() {
				return fmt.Errorf("%w: %w", errJoinRejected, err)
			}
			h.log.Debug().Err(err).Str("conn_id", session.ID).Str("type", inbound.Type).Msg("dropping inbound")
			continue
		}

		if err := h.hub.Dispatch(ctx, session, cmd); err != nil {
			if core.IsFatal(err) {
				return fmt.Errorf("%w: %w", errJoinRejected, err)
			}
			h.log.Debug().Err(err).Str("conn_id", session.ID).Str("type", inbound.Type).Msg("command dropped")
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	for {
		select {
		case event := <-session.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", session.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
