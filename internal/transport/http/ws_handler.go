package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"trivia-live-service/internal/app"
)

const (
	defaultSendBuffer = 64
	defaultWriteWait  = 10 * time.Second
	maxMessageSize    = 64 * 1024
)

// WSOptions tunes the websocket endpoint. Zero values use defaults, except
// PongWait and PingInterval where zero disables the heartbeat.
type WSOptions struct {
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	SendBuffer     int
	AllowedOrigins []string
}

type WSHandler struct {
	coord    *app.Coordinator
	upgrader websocket.Upgrader
	opts     WSOptions
	log      *slog.Logger
}

func NewWSHandler(coord *app.Coordinator, opts WSOptions, log *slog.Logger) *WSHandler {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = defaultWriteWait
	}
	if log == nil {
		log = slog.Default()
	}
	return &WSHandler{
		coord: coord,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
		opts: opts,
		log:  log,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(r *http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeWS upgrades the request and runs the connection until either side
// closes it. Every frame is handed to the coordinator in arrival order.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", slog.Any("error", err))
		return
	}

	conn := newWSConn(ws, h.opts.SendBuffer, h.log)
	session := h.coord.Open(conn)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		conn.writePump(h.opts.PingInterval, h.opts.WriteWait)
	}()

	h.readLoop(r.Context(), conn, session)

	conn.shutdown()
	h.coord.Close(context.WithoutCancel(r.Context()), session)
	<-writerDone
}

func (h *WSHandler) readLoop(ctx context.Context, conn *wsConn, session *app.Session) {
	ws := conn.ws
	ws.SetReadLimit(maxMessageSize)
	if h.opts.PongWait > 0 {
		_ = ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))
		})
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				conn.log.Info("ws read failed", slog.Any("error", err))
			}
			return
		}
		if !conn.Open() {
			return
		}
		h.coord.Handle(ctx, session, data)
	}
}
