package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cwrk-planet/comments-service/internal/metrics"
)

type Conn interface {
	Send(f Frame) error
	Probe() error // сбрасывает alive и шлёт liveness-пробу
	Alive() bool  // был ли ack после последней пробы
	Close() error
}

// Hub — реестр live-соединений и их подписок на треды.
// Единственный владелец обеих map; все мутации — под mu.
type Hub struct {
	mu    sync.RWMutex
	conns map[Conn]struct{}
	rooms map[int64]map[Conn]struct{} // subjectID -> set of connections

	sweepEvery time.Duration
}

func NewHub(sweepEvery time.Duration) *Hub {
	if sweepEvery <= 0 {
		sweepEvery = 30 * time.Second
	}
	return &Hub{
		conns:      make(map[Conn]struct{}),
		rooms:      make(map[int64]map[Conn]struct{}),
		sweepEvery: sweepEvery,
	}
}

func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		return
	}
	h.conns[c] = struct{}{}
	metrics.ActiveConnections.Inc()
}

func (h *Hub) Unregister(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// Join идемпотентен. Subject id не проверяется по таблице сотрудников:
// пространство имён тредов принадлежит внешнему сервису.
func (h *Hub) Join(c Conn, subjectID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; !ok {
		return
	}
	rs, ok := h.rooms[subjectID]
	if !ok {
		rs = make(map[Conn]struct{})
		h.rooms[subjectID] = rs
	}
	rs[c] = struct{}{}
}

// Broadcast доставляет кадр всем подписчикам треда, best-effort.
// Отказ одного соединения не трогает остальные; переполненные или
// закрытые соединения снимаются с учёта.
func (h *Hub) Broadcast(subjectID int64, f Frame) {
	h.broadcast(subjectID, f, nil)
}

// BroadcastExcept — то же, но без соединения-источника (у него кадр уже есть).
func (h *Hub) BroadcastExcept(subjectID int64, f Frame, except Conn) {
	h.broadcast(subjectID, f, except)
}

func (h *Hub) broadcast(subjectID int64, f Frame, except Conn) {
	h.mu.RLock()
	var failed []Conn
	for c := range h.rooms[subjectID] {
		if c == except {
			continue
		}
		metrics.BroadcastAttempts.Inc()
		if err := c.Send(f); err != nil {
			metrics.BroadcastFailures.Inc()
			slog.Debug("ws broadcast send failed", "subject", subjectID, "err", err)
			failed = append(failed, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range failed {
		h.Unregister(c)
		_ = c.Close()
	}
}

// Run гоняет liveness sweep до отмены контекста, затем закрывает всё.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.sweep()
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// sweep: соединение без ack-а с прошлой пробы закрывается; остальным
// шлётся новая проба. Мёртвый транспорт живёт не дольше двух интервалов.
func (h *Hub) sweep() {
	h.mu.Lock()
	var dead []Conn
	for c := range h.conns {
		if !c.Alive() {
			h.removeLocked(c)
			dead = append(dead, c)
		}
	}
	alive := make([]Conn, 0, len(h.conns))
	for c := range h.conns {
		alive = append(alive, c)
	}
	h.mu.Unlock()

	for _, c := range dead {
		_ = c.Close()
		metrics.ConnectionsEvicted.Inc()
	}
	if len(dead) > 0 {
		slog.Info("ws sweep evicted connections", "count", len(dead))
	}
	for _, c := range alive {
		_ = c.Probe()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	conns := make([]Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[Conn]struct{})
	h.rooms = make(map[int64]map[Conn]struct{})
	metrics.ActiveConnections.Set(0)
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

// removeLocked вызывается только под h.mu.
func (h *Hub) removeLocked(c Conn) {
	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	metrics.ActiveConnections.Dec()
	for subjectID, rs := range h.rooms {
		delete(rs, c)
		if len(rs) == 0 {
			delete(h.rooms, subjectID)
		}
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
