package http

import (
	"net/http"
	"strings"

	"github.com/YelzhanWeb/bistro/internal/adapter/logger"
	"github.com/YelzhanWeb/bistro/internal/domain"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
)

type OrderHandler struct {
	service interfaces.OrderService
	logger  logger.Logger
}

func NewOrderHandler(service interfaces.OrderService, logger logger.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger,
	}
}

// CreateOrder writes the stored response as is, so a retried request gets
// exactly the bytes the first one got.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var cmd interfaces.CreateOrderCommand
	if !decodeBody(w, r, &cmd) {
		return
	}
	cmd.IdempotencyKey = strings.TrimSpace(r.Header.Get(headerIdempotencyKey))

	resp, err := h.service.CreateOrder(r.Context(), cmd)
	if err != nil {
		writeServiceError(w, r, h.logger, "order_creation_failed", err)
		return
	}

	if resp.Replayed {
		w.Header().Set(headerReplayed, "true")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), r.PathValue("no"))
	if err != nil {
		writeServiceError(w, r, h.logger, "order_lookup_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, interfaces.NewOrderResponse(order))
}

func (h *OrderHandler) GetOrderHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.GetOrderHistory(r.Context(), r.PathValue("no"))
	if err != nil {
		writeServiceError(w, r, h.logger, "order_history_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, interfaces.NewStatusLogResponse(history))
}

func (h *OrderHandler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.AdvanceStatus(r.Context(), r.PathValue("no"), actorFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, "order_advance_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, interfaces.NewOrderResponse(order))
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.service.TransitionStatus(r.Context(), r.PathValue("no"), domain.OrderStatus(req.Status), actorFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, "order_transition_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, interfaces.NewOrderResponse(order))
}

type replaceItemsRequest struct {
	Items []interfaces.CreateOrderItemCommand `json:"items"`
}

func (h *OrderHandler) ReplaceItems(w http.ResponseWriter, r *http.Request) {
	var req replaceItemsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.service.ReplaceItems(r.Context(), r.PathValue("no"), req.Items)
	if err != nil {
		writeServiceError(w, r, h.logger, "order_items_update_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, interfaces.NewOrderResponse(order))
}
