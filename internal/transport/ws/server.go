package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwrk-planet/comments-service/internal/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var errSlowConsumer = errors.New("outbound queue full")

type Server struct {
	upgrader   websocket.Upgrader
	hub        *Hub
	sendBuffer int
	probeWait  time.Duration // дедлайн чтения; два пропущенных sweep-а — эвикция
}

func NewServer(hub *Hub, sendBuffer int) *Server {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	return &Server{
		hub:        hub,
		sendBuffer: sendBuffer,
		probeWait:  2 * hub.sweepEvery,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// WS endpoint: GET /ws
// Кадры от клиента: join {type:"join", subjectId, sender} и chat-relay
// {id, sender, content, subjectId, timestamp}. Relay не персистится:
// durable-путь — только POST /messages.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn, s.sendBuffer)
	s.hub.Register(c)

	go c.writeLoop()
	s.readLoop(c)

	s.hub.Unregister(c)
	_ = c.Close()
}

func (s *Server) readLoop(c *wsConn) {
	c.conn.SetReadLimit(1 << 20)
	_ = c.conn.SetReadDeadline(time.Now().Add(s.probeWait))
	c.conn.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return c.conn.SetReadDeadline(time.Now().Add(s.probeWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue // битый кадр — молча пропускаем, соединение живёт
		}

		switch {
		case f.Type == TypeJoin:
			if f.SubjectID <= 0 {
				continue
			}
			c.setName(f.Sender)
			s.hub.Join(c, f.SubjectID)
			slog.Debug("ws join", "subject", f.SubjectID, "sender", c.name())

		case strings.TrimSpace(f.Content) != "":
			if f.SubjectID <= 0 {
				continue
			}
			// Relay: уведомление о возможно-ещё-не-durable событии.
			// Историю восстанавливает только durable-fetch на клиенте.
			f.Type = TypeChat
			if strings.TrimSpace(f.Sender) == "" {
				f.Sender = c.name()
			}
			if f.Timestamp.IsZero() {
				f.Timestamp = time.Now().UTC()
			}
			s.hub.BroadcastExcept(f.SubjectID, f, c)
			metrics.LiveFramesRelayed.Inc()

		default:
			// кадр без join-типа и без content — дропаем
		}
	}
}

// --- wsConn ---

type wsConn struct {
	conn *websocket.Conn

	send      chan Frame
	closed    chan struct{}
	closeOnce sync.Once

	alive atomic.Bool

	nameMu      sync.Mutex
	displayName string
}

func newWsConn(conn *websocket.Conn, sendBuffer int) *wsConn {
	c := &wsConn{
		conn:        conn,
		send:        make(chan Frame, sendBuffer),
		closed:      make(chan struct{}),
		displayName: "guest-" + uuid.NewString()[:8],
	}
	c.alive.Store(true)
	return c
}

// Send кладёт кадр в ограниченную очередь, не блокируясь: медленный
// потребитель получает ошибку и отключается, а не копит память сервера.
func (c *wsConn) Send(f Frame) error {
	select {
	case <-c.closed:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case c.send <- f:
		return nil
	default:
		return errSlowConsumer
	}
}

func (c *wsConn) writeLoop() {
	for {
		select {
		case f := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteJSON(f); err != nil {
				_ = c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *wsConn) Probe() error {
	c.alive.Store(false)
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

func (c *wsConn) Alive() bool { return c.alive.Load() }

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.conn.Close()
}

// setName запоминает displayName из первого join-кадра; дальше не меняется.
func (c *wsConn) setName(sender string) {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return
	}
	c.nameMu.Lock()
	defer c.nameMu.Unlock()
	if !strings.HasPrefix(c.displayName, "guest-") {
		return
	}
	c.displayName = sender
}

func (c *wsConn) name() string {
	c.nameMu.Lock()
	defer c.nameMu.Unlock()
	return c.displayName
}
