package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"priyom/internal/domain"
	"priyom/internal/export"
	"priyom/internal/models"
	"priyom/internal/service"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// defaultListDays is the range of the owner listing when no dates are given.
const defaultListDays = 30

func (s *HTTPServer) handleListOwners(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	owners, err := s.svc.Owners.ListOwners(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"owners": owners})
}

func (s *HTTPServer) handleRegisterOwner(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	owner, err := s.svc.Owners.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, owner)
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ownerID, ok := pathID(w, ps, "ownerID")
	if !ok {
		return
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	slots, err := s.svc.Slots.ComputeAvailableSlots(r.Context(), ownerID, date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner_id":     ownerID,
		"date":         date,
		"slot_minutes": int(s.svc.Slots.SlotDuration() / time.Minute),
		"slots":        slots,
	})
}

func (s *HTTPServer) handleOwnerWindows(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ownerID, ok := pathID(w, ps, "ownerID")
	if !ok {
		return
	}

	var weekday *time.Weekday
	if raw := strings.TrimSpace(r.URL.Query().Get("weekday")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 6 {
			writeError(w, http.StatusBadRequest, "weekday must be 0..6 (0 = Sunday)")
			return
		}
		d := time.Weekday(n)
		weekday = &d
	}

	windows, err := s.svc.Availability.ListWindows(r.Context(), ownerID, weekday)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"windows": windows})
}

func (s *HTTPServer) handleReserve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.ReserveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	reservation, err := s.svc.Booking.Reserve(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reservation)
}

func (s *HTTPServer) handleGetReservation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := pathID(w, ps, "id")
	if !ok {
		return
	}
	reservation, err := s.svc.Booking.GetReservation(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

func (s *HTTPServer) handleSetStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := pathID(w, ps, "id")
	if !ok {
		return
	}
	var body struct {
		Status models.ReservationStatus `json:"status"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	updated, err := s.svc.Status.SetStatus(r.Context(), id, body.Status, s.credential(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reservation_id": id,
		"status":         body.Status,
		"updated":        updated,
	})
}

func (s *HTTPServer) handleCancelBySecret(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	cancelled, err := s.svc.Status.CancelBySecret(r.Context(), ps.ByName("secret"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

func (s *HTTPServer) handleOwnWindows(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	windows, err := s.svc.Availability.ListOwnWindows(r.Context(), s.credential(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"windows": windows})
}

func (s *HTTPServer) handleAddWindow(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.WindowRequest
	if !decodeBody(w, r, &req) {
		return
	}
	window, err := s.svc.Availability.AddWindow(r.Context(), s.credential(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, window)
}

func (s *HTTPServer) handleRemoveWindow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	windowID, ok := pathID(w, ps, "windowID")
	if !ok {
		return
	}
	deleted, err := s.svc.Availability.RemoveWindow(r.Context(), s.credential(r), windowID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "window not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *HTTPServer) handleUpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var patch models.OwnerPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	owner, err := s.svc.Owners.UpdateProfile(r.Context(), s.credential(r), patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, owner)
}

func (s *HTTPServer) handleOwnerReservations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	from, to, ok := s.dateRange(w, r)
	if !ok {
		return
	}
	_, reservations, err := s.svc.Owners.OwnerReservations(r.Context(), s.credential(r), from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":         from.Format(models.DateLayout),
		"to":           to.AddDate(0, 0, -1).Format(models.DateLayout),
		"reservations": reservations,
	})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	from, to, ok := s.dateRange(w, r)
	if !ok {
		return
	}
	owner, reservations, err := s.svc.Owners.OwnerReservations(r.Context(), s.credential(r), from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	lastDay := to.AddDate(0, 0, -1)
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(owner.ID, from, lastDay)))
	if err := export.WriteReservations(w, owner, reservations, from, lastDay, s.svc.Slots.Location()); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int64("owner_id", owner.ID).Msg("export failed")
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.svc.Health != nil {
		if err := s.svc.Health.Ping(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("health check failed")
			writeError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) credential(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(s.tokenHdr))
}

// dateRange reads ?from=&to= as calendar days in the booking time zone. The
// "to" day is included. Without parameters the next defaultListDays are used.
func (s *HTTPServer) dateRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()
	loc := s.svc.Slots.Location()

	now := time.Now().In(loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		d, err := s.svc.Slots.ParseDate(raw)
		if err != nil {
			writeServiceError(w, r, err)
			return time.Time{}, time.Time{}, false
		}
		from = d
	}

	to := from.AddDate(0, 0, defaultListDays)
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		d, err := s.svc.Slots.ParseDate(raw)
		if err != nil {
			writeServiceError(w, r, err)
			return time.Time{}, time.Time{}, false
		}
		to = d.AddDate(0, 0, 1)
	}
	return from, to, true
}

func pathID(w http.ResponseWriter, ps httprouter.Params, name string) (int64, bool) {
	id, err := strconv.ParseInt(ps.ByName(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a positive integer", name))
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: invalid JSON body", domain.ErrValidation))
		return false
	}
	return true
}
