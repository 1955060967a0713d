package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/huddle-server/internal/core"
	"github.com/vovakirdan/huddle-server/internal/presence"
	"github.com/vovakirdan/huddle-server/internal/proto"
	"github.com/vovakirdan/huddle-server/internal/store"
	"github.com/vovakirdan/huddle-server/internal/utils"
)

const writeTimeout = 5 * time.Second

var errRateLimited = core.NewError(core.ErrCodeBadRequest, "rate limit exceeded")

// Presence is the part of the registry the transport drives.
type Presence interface {
	Register(ctx context.Context, conn presence.Conn, req presence.RegisterRequest) (core.Identity, error)
	Dispatch(ctx context.Context, id core.Identity, conn presence.Conn, msg proto.Inbound)
	Unregister(id core.Identity, conn presence.Conn)
	Snapshot() presence.Snapshot
	LastSeats(ctx context.Context) ([]*store.LastSeat, error)
}

// WSOptions tunes the websocket endpoint.
type WSOptions struct {
	MaxMessageBytes int64
	FramesPerMinute int
	AllowedOrigins  []string
}

// WSHandler upgrades HTTP connections and bridges them to the presence registry.
type WSHandler struct {
	presence Presence
	opts     WSOptions
	log      *zerolog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(p Presence, opts WSOptions, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{presence: p, opts: opts, log: logger, done: make(chan struct{})}
}

// Close ends every live session. Hijacked connections are not tracked by
// http.Server, so Shutdown alone leaves them open.
func (h *WSHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	accept := &websocket.AcceptOptions{OriginPatterns: h.opts.AllowedOrigins}
	if len(h.opts.AllowedOrigins) == 0 {
		accept.InsecureSkipVerify = true
	}
	conn, err := websocket.Accept(w, r, accept)
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.opts.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.opts.MaxMessageBytes)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		select {
		case <-h.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	wc := newWSConn(utils.NewID())
	defer wc.close()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, wc)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, wc)
	}()

	err = <-errCh
	cancel()
	<-errCh

	select {
	case <-h.done:
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	default:
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
				status = websocket.StatusPolicyViolation
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", wc.ID()).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, wc *wsConn) error {
	limiter := newRateLimiter(h.opts.FramesPerMinute)

	var (
		id         core.Identity
		registered bool
	)
	defer func() {
		if registered {
			h.presence.Unregister(id, wc)
		}
	}()

	for {
		inbound, ok, err := h.readFrame(ctx, conn, wc)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if !limiter.allow() {
			h.log.Warn().Str("conn_id", wc.ID()).Str("type", inbound.Type).Msg("rate limit exceeded, dropping frame")
			_ = wc.Send(proto.Outbound{Type: proto.OutboundTypeOperationFailed, Payload: proto.OperationFailed{
				Operation: inbound.Type,
				Message:   errRateLimited.Error(),
			}})
			continue
		}

		if !registered {
			if inbound.Type != proto.InboundTypeRegister {
				h.log.Debug().Str("conn_id", wc.ID()).Str("type", inbound.Type).Msg("frame before register")
				_ = wc.Send(proto.Outbound{Type: proto.OutboundTypeOperationFailed, Payload: proto.OperationFailed{
					Operation: inbound.Type,
					Message:   "register first",
				}})
				continue
			}
			id, err = h.presence.Register(ctx, wc, presence.RegisterRequest{
				UserID:         inbound.UserID,
				PreferredSeat:  inbound.PreferredSeat,
				ReconnectToken: inbound.ReconnectToken,
				HostSecret:     inbound.HostSecret,
			})
			if err != nil {
				h.log.Debug().Err(err).Str("conn_id", wc.ID()).Msg("register rejected")
				continue
			}
			registered = true
			continue
		}

		h.presence.Dispatch(ctx, id, wc, inbound)
	}
}

// readFrame reads one text frame. A frame that is not valid JSON is logged and
// reported as !ok; only transport errors are returned.
func (h *WSHandler) readFrame(ctx context.Context, conn *websocket.Conn, wc *wsConn) (proto.Inbound, bool, error) {
	var inbound proto.Inbound
	typ, data, err := conn.Read(ctx)
	if err != nil {
		return inbound, false, err
	}
	if typ != websocket.MessageText {
		h.log.Debug().Str("conn_id", wc.ID()).Msg("dropping binary frame")
		return inbound, false, nil
	}
	if err := json.Unmarshal(data, &inbound); err != nil || inbound.Type == "" {
		h.log.Warn().Err(err).Str("conn_id", wc.ID()).Int("bytes", len(data)).Msg("dropping malformed frame")
		return inbound, false, nil
	}
	return inbound, true, nil
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, wc *wsConn) error {
	for {
		select {
		case msg := <-wc.out:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, msg)
			cancel()
			if err != nil {
				h.log.Error().Err(err).Str("conn_id", wc.ID()).Str("type", msg.Type).Msg("write ws frame")
				wc.close()
				return err
			}
		case <-wc.done:
			return errQueueFull
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
