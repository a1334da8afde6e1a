package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/collexus/erp/backend/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 512
)

const (
	eventJoinAdmin  = "join-admin"
	eventLeaveAdmin = "leave-admin"
)

var (
	errObserverClosed = errors.New("observer connection closed")
	errObserverSlow   = errors.New("observer send buffer full")
)

type clientMessage struct {
	Event string `json:"event"`
}

type serverMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// wsObserver is one websocket connection. Updates are queued on send and written by a single
// writer goroutine; a full queue drops the update for this connection only.
type wsObserver struct {
	id   string
	conn *websocket.Conn
	send chan domain.StudentCountUpdate

	done      chan struct{}
	closeOnce sync.Once
}

func newWSObserver(conn *websocket.Conn, buffer int) *wsObserver {
	return &wsObserver{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan domain.StudentCountUpdate, buffer),
		done: make(chan struct{}),
	}
}

func (o *wsObserver) ID() string {
	return o.id
}

func (o *wsObserver) Send(update domain.StudentCountUpdate) error {
	select {
	case <-o.done:
		return errObserverClosed
	default:
	}

	select {
	case o.send <- update:
		return nil
	default:
		return errObserverSlow
	}
}

func (o *wsObserver) close() {
	o.closeOnce.Do(func() { close(o.done) })
}

func (o *wsObserver) writeLoop() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		o.conn.Close()
	}()

	for {
		select {
		case <-o.done:
			_ = o.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = o.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case update := <-o.send:
			_ = o.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := o.conn.WriteJSON(serverMessage{Event: domain.StudentCountUpdateEvent, Data: update}); err != nil {
				slog.Debug("websocket write failed", "observer", o.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = o.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := o.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeObserver upgrades the request and lets the client join or leave the admin observer group.
// Disconnecting leaves the group.
func (h *Handler) ServeObserver(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written an error response
		slog.Warn("websocket upgrade failed", "ip", r.RemoteAddr, "error", err)
		return
	}

	o := newWSObserver(conn, h.config.Notify.SendBuffer)
	claims := sessionFrom(r.Context())
	slog.Info("websocket connected", "observer", o.id, "account", claims.Subject)

	go o.writeLoop()
	defer func() {
		h.observers.Leave(o.id)
		o.close()
		slog.Info("websocket disconnected", "observer", o.id, "account", claims.Subject)
	}()

	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read failed", "observer", o.id, "error", err)
			}
			return
		}

		switch msg.Event {
		case eventJoinAdmin:
			h.observers.Join(o)
		case eventLeaveAdmin:
			h.observers.Leave(o.id)
		default:
			slog.Debug("ignoring websocket event", "observer", o.id, "event", msg.Event)
		}
	}
}
