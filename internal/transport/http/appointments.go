package httptransport

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/miltonyano/gostack-gobarber/internal/apperror"
	"github.com/miltonyano/gostack-gobarber/internal/domain"
	"github.com/miltonyano/gostack-gobarber/internal/service/appointments"
)

type monthQuery struct {
	Year  int `query:"year" validate:"required,min=1"`
	Month int `query:"month" validate:"required,min=1,max=12"`
}

type dayQuery struct {
	Year  int `query:"year" validate:"required,min=1"`
	Month int `query:"month" validate:"required,min=1,max=12"`
	Day   int `query:"day" validate:"required,min=1,max=31"`
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, apperror.Validation(fmt.Sprintf("%q is required", name))
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.Validation(fmt.Sprintf("%q must be a number", name))
	}
	return n, nil
}

func (h *handler) parseMonth(r *http.Request) (monthQuery, error) {
	var q monthQuery
	var err error
	if q.Year, err = queryInt(r, "year"); err != nil {
		return q, err
	}
	if q.Month, err = queryInt(r, "month"); err != nil {
		return q, err
	}
	return q, h.check(q)
}

func (h *handler) parseDay(r *http.Request) (dayQuery, error) {
	m, err := h.parseMonth(r)
	if err != nil {
		return dayQuery{}, err
	}
	q := dayQuery{Year: m.Year, Month: m.Month}
	if q.Day, err = queryInt(r, "day"); err != nil {
		return q, err
	}
	return q, h.check(q)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperror.Validation(fmt.Sprintf("%q must be a valid GUID", name))
	}
	return id, nil
}

func (h *handler) createAppointment(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(zap.String("route", "POST /appointments"))

	var req createAppointmentRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(log, w, err)
		return
	}
	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		writeError(log, w, apperror.Validation(`"provider_id" must be a valid GUID`))
		return
	}

	userID := userIDFrom(r.Context())
	appt, err := h.appointments.Create(r.Context(), appointments.CreateInput{
		ProviderID: providerID,
		UserID:     userID,
		Date:       req.Date,
	})
	if err != nil {
		writeError(log.With(zap.String("user_id", userID.String())), w, err)
		return
	}

	log.Info("appointment created",
		zap.String("appointment_id", appt.ID.String()),
		zap.String("provider_id", appt.ProviderID.String()),
		zap.String("user_id", appt.UserID.String()),
		zap.Time("date", appt.Date),
	)
	writeJSON(w, http.StatusOK, h.toAppointment(appt))
}

// providerSchedule lists the authenticated provider's appointments for one day.
func (h *handler) providerSchedule(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(zap.String("route", "GET /appointments/me"))

	q, err := h.parseDay(r)
	if err != nil {
		writeError(log, w, err)
		return
	}

	rows, err := h.appointments.ListProviderAppointments(r.Context(), userIDFrom(r.Context()), q.Year, time.Month(q.Month), q.Day)
	if err != nil {
		writeError(log, w, err)
		return
	}

	out := make([]appointmentResponse, 0, len(rows))
	for _, a := range rows {
		out = append(out, h.toAppointment(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) listProviders(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(zap.String("route", "GET /providers"))

	providers, err := h.appointments.ListProviders(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toUsers(providers))
}

func (h *handler) monthAvailability(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(zap.String("route", "GET /providers/{provider_id}/month-availability"))

	providerID, err := pathUUID(r, "provider_id")
	if err != nil {
		writeError(log, w, err)
		return
	}
	q, err := h.parseMonth(r)
	if err != nil {
		writeError(log, w, err)
		return
	}

	days, err := h.appointments.MonthAvailability(r.Context(), providerID, q.Year, time.Month(q.Month))
	if err != nil {
		writeError(log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(days))
}

func (h *handler) dayAvailability(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(zap.String("route", "GET /providers/{provider_id}/day-availability"))

	providerID, err := pathUUID(r, "provider_id")
	if err != nil {
		writeError(log, w, err)
		return
	}
	q, err := h.parseDay(r)
	if err != nil {
		writeError(log, w, err)
		return
	}

	hours, err := h.appointments.DayAvailability(r.Context(), providerID, q.Year, time.Month(q.Month), q.Day)
	if err != nil {
		writeError(log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(hours))
}

func nonNil[T domain.DayAvailability | domain.HourAvailability | domain.Notification](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
