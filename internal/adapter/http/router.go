package http

import (
	"net/http"

	"github.com/YelzhanWeb/bistro/internal/adapter/logger"
)

// NewRouter wires public and staff routes. Staff routes sit behind AdminAuth.
func NewRouter(orders *OrderHandler, reservations *ReservationHandler, jwtSecret string, logger logger.Logger) http.Handler {
	mux := http.NewServeMux()
	admin := AdminAuth(jwtSecret, logger)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /orders", orders.CreateOrder)
	mux.HandleFunc("GET /orders/{no}", orders.GetOrder)
	mux.HandleFunc("GET /orders/{no}/history", orders.GetOrderHistory)
	mux.Handle("POST /orders/{no}/advance", admin(http.HandlerFunc(orders.AdvanceStatus)))
	mux.Handle("POST /orders/{no}/status", admin(http.HandlerFunc(orders.TransitionStatus)))
	mux.Handle("PUT /orders/{no}/items", admin(http.HandlerFunc(orders.ReplaceItems)))

	mux.HandleFunc("POST /reservations", reservations.CreateReservation)
	mux.HandleFunc("GET /reservations/availability", reservations.CheckAvailability)
	mux.Handle("GET /reservations/day", admin(http.HandlerFunc(reservations.DaySheet)))
	mux.Handle("GET /reservations/{id}", admin(http.HandlerFunc(reservations.GetReservation)))
	mux.Handle("GET /reservations/{id}/history", admin(http.HandlerFunc(reservations.GetReservationHistory)))
	mux.Handle("POST /reservations/{id}/confirm", admin(http.HandlerFunc(reservations.Confirm)))
	mux.Handle("POST /reservations/{id}/cancel", admin(http.HandlerFunc(reservations.Cancel)))
	mux.Handle("POST /reservations/{id}/advance", admin(http.HandlerFunc(reservations.Advance)))

	var handler http.Handler = mux
	handler = LoggingMiddleware(logger)(handler)
	handler = RecoveryMiddleware(logger)(handler)
	handler = RequestIDMiddleware(handler)
	return handler
}
