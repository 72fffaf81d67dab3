package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/YelzhanWeb/bistro/internal/adapter/logger"
	"github.com/YelzhanWeb/bistro/internal/domain"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
)

type ReservationHandler struct {
	service interfaces.ReservationService
	logger  logger.Logger
}

func NewReservationHandler(service interfaces.ReservationService, logger logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		logger:  logger,
	}
}

type createReservationRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Guests  int    `json:"guests"`
	Message string `json:"message"`
}

type createReservationResponse struct {
	Reservation  interfaces.ReservationResponse   `json:"reservation"`
	Availability *interfaces.AvailabilityResponse `json:"availability,omitempty"`
}

func (h *ReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var errs domain.ValidationErrors
	date, slot := parseDateAndSlot(req.Date, req.Time, &errs)
	if err := errs.Err(); err != nil {
		writeServiceError(w, r, h.logger, "reservation_creation_failed", err)
		return
	}

	result, err := h.service.CreateReservation(r.Context(), interfaces.CreateReservationCommand{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Date:    date,
		Time:    slot,
		Guests:  req.Guests,
		Message: req.Message,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "reservation_creation_failed", err)
		return
	}

	resp := createReservationResponse{Reservation: interfaces.NewReservationResponse(result.Reservation)}
	if result.Availability != nil {
		a := interfaces.NewAvailabilityResponse(result.Availability)
		resp.Availability = &a
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *ReservationHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var errs domain.ValidationErrors
	date, slot := parseDateAndSlot(q.Get("date"), q.Get("time"), &errs)
	guests, err := strconv.Atoi(q.Get("guests"))
	if err != nil {
		errs.Add("guests", "guests must be a whole number")
	}
	if err := errs.Err(); err != nil {
		writeServiceError(w, r, h.logger, "availability_check_failed", err)
		return
	}

	availability, err := h.service.CheckAvailability(r.Context(), date, slot, guests)
	if err != nil {
		writeServiceError(w, r, h.logger, "availability_check_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, interfaces.NewAvailabilityResponse(availability))
}

func (h *ReservationHandler) DaySheet(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(time.DateOnly, r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, r, h.logger, "day_sheet_failed", domain.ValidationErrors{
			{Field: "date", Message: "date must be formatted as YYYY-MM-DD"},
		})
		return
	}

	sheet, err := h.service.DaySheet(r.Context(), date)
	if err != nil {
		writeServiceError(w, r, h.logger, "day_sheet_failed", err)
		return
	}

	resp := make([]interfaces.AvailabilityResponse, len(sheet))
	for i, a := range sheet {
		resp[i] = interfaces.NewAvailabilityResponse(a)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := reservationID(w, r)
	if !ok {
		return
	}

	res, err := h.service.GetReservation(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "reservation_lookup_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, interfaces.NewReservationResponse(res))
}

func (h *ReservationHandler) GetReservationHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := reservationID(w, r)
	if !ok {
		return
	}

	history, err := h.service.GetReservationHistory(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "reservation_history_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, interfaces.NewStatusLogResponse(history))
}

type confirmRequest struct {
	Message string `json:"message"`
}

func (h *ReservationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := reservationID(w, r)
	if !ok {
		return
	}

	// the body is optional
	var req confirmRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	res, err := h.service.Confirm(r.Context(), id, strings.TrimSpace(req.Message), actorFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, "reservation_confirm_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, interfaces.NewReservationResponse(res))
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := reservationID(w, r)
	if !ok {
		return
	}

	res, err := h.service.Cancel(r.Context(), id, actorFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, "reservation_cancel_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, interfaces.NewReservationResponse(res))
}

func (h *ReservationHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id, ok := reservationID(w, r)
	if !ok {
		return
	}

	res, err := h.service.Advance(r.Context(), id, actorFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, "reservation_advance_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, interfaces.NewReservationResponse(res))
}

func reservationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, r, http.StatusBadRequest, "Invalid reservation id", "invalid_id", nil)
		return 0, false
	}
	return id, true
}

func parseDateAndSlot(rawDate, rawTime string, errs *domain.ValidationErrors) (time.Time, domain.Slot) {
	date, err := time.Parse(time.DateOnly, strings.TrimSpace(rawDate))
	if err != nil {
		errs.Add("date", "date must be formatted as YYYY-MM-DD")
	}
	slot, err := domain.ParseSlot(strings.TrimSpace(rawTime))
	if err != nil {
		errs.Add("time", err.Error())
	}
	return date, slot
}
