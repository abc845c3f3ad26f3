package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cwrk-planet/comments-service/internal/domain"
	"github.com/cwrk-planet/comments-service/internal/metrics"
	httpmw "github.com/cwrk-planet/comments-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/comments-service/internal/transport/ws"
	"github.com/cwrk-planet/comments-service/pkg/errs"
	"github.com/cwrk-planet/comments-service/pkg/httputil"

	"github.com/go-chi/chi/v5"
)

type MessageSvc interface {
	Append(ctx context.Context, subjectID int64, sender, content string) (*domain.Message, error)
	ListBySubject(ctx context.Context, subjectID int64) ([]domain.Message, error)
}

type Broadcaster interface {
	Broadcast(subjectID int64, f ws.Frame)
}

type Handler struct {
	msgSvc MessageSvc
	hub    Broadcaster
}

func NewHandler(msgSvc MessageSvc, hub Broadcaster) *Handler {
	return &Handler{msgSvc: msgSvc, hub: hub}
}

// POST /messages
// Durable-путь: запись в хранилище, затем broadcast. Отказ рассылки
// не откатывает запись и не виден вызывающему.
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	sender := req.Sender
	if id, ok := httpmw.IdentityFromCtx(r.Context()); ok && id.DisplayName != "" {
		sender = id.DisplayName
	}

	msg, err := h.msgSvc.Append(r.Context(), req.SubjectID, sender, req.Content)
	if err != nil {
		status := errs.ToHTTP(err)
		if status >= http.StatusInternalServerError {
			slog.Error("handler.CreateMessage:", slog.Any("err", err))
		}
		httputil.Error(w, status, err.Error())
		return
	}

	metrics.MessagesPersisted.Inc()
	// только после подтверждённой записи
	h.hub.Broadcast(msg.SubjectID, ws.ChatFrame(*msg))

	httputil.JSON(w, http.StatusCreated, toItem(*msg))
}

// GET /messages/{subjectId}
// Все сообщения треда, новые первыми; для пустого треда — пустой массив.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	subjectID, err := strconv.ParseInt(chi.URLParam(r, "subjectId"), 10, 64)
	if err != nil || subjectID <= 0 {
		httputil.Error(w, http.StatusBadRequest, "invalid subject id")
		return
	}

	msgs, err := h.msgSvc.ListBySubject(r.Context(), subjectID)
	if err != nil {
		slog.Error("handler.ListMessages:", slog.Any("err", err))
		httputil.Error(w, errs.ToHTTP(err), err.Error())
		return
	}

	items := make([]MessageItem, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, toItem(m))
	}

	httputil.NoStore(w)
	httputil.JSON(w, http.StatusOK, items)
}
