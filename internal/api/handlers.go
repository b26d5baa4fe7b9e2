package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/localcare/care-booking/internal/booking"
	"github.com/localcare/care-booking/internal/caregiver"
)

func createAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		caregiverID, err := uuid.Parse(req.CaregiverID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_caregiver_id", "caregiver_id must be a valid UUID")
			return
		}

		createReq := booking.CreateRequest{
			PatientID:   patientID,
			CaregiverID: caregiverID,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			Kind:        booking.Kind(req.Kind),
			Location:    req.Location,
			Notes:       req.Notes,
		}

		if req.Recurrence != nil {
			endDate, err := time.Parse("2006-01-02", req.Recurrence.EndDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_recurrence", "end_date must be YYYY-MM-DD")
				return
			}
			createReq.Recurrence = &booking.RecurrencePattern{
				Frequency: booking.Frequency(req.Recurrence.Frequency),
				Interval:  req.Recurrence.Interval,
				EndDate:   endDate,
			}
		}

		for _, svcPayload := range req.CareServices {
			createReq.CareServices = append(createReq.CareServices, booking.CareService{
				Type:            svcPayload.Type,
				DurationMinutes: svcPayload.DurationMinutes,
				Notes:           svcPayload.Notes,
			})
		}

		result, err := svc.Create(r.Context(), createReq)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := CreateAppointmentResponse{
			Appointment: toAppointmentResponse(result.Appointment),
			Skipped:     result.Skipped,
		}
		for i := range result.Instances {
			resp.Instances = append(resp.Instances, toAppointmentResponse(&result.Instances[i]))
		}

		writeJSON(w, http.StatusCreated, resp)
	}
}

func getAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		patientParam := r.URL.Query().Get("patient_id")
		caregiverParam := r.URL.Query().Get("caregiver_id")

		var (
			appts []booking.Appointment
			err   error
		)
		switch {
		case patientParam != "":
			patientID, parseErr := uuid.Parse(patientParam)
			if parseErr != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			appts, err = svc.ListByPatient(r.Context(), patientID, limit, offset)
		case caregiverParam != "":
			caregiverID, parseErr := uuid.Parse(caregiverParam)
			if parseErr != nil {
				writeError(w, http.StatusBadRequest, "invalid_caregiver_id", "caregiver_id must be a valid UUID")
				return
			}
			appts, err = svc.ListByCaregiver(r.Context(), caregiverID, limit, offset)
		default:
			writeError(w, http.StatusBadRequest, "missing_filter", "patient_id or caregiver_id query parameter is required")
			return
		}
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := ListAppointmentsResponse{
			Appointments: make([]AppointmentResponse, 0, len(appts)),
			Limit:        limit,
			Offset:       offset,
		}
		for i := range appts {
			resp.Appointments = append(resp.Appointments, toAppointmentResponse(&appts[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func rescheduleAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req RescheduleAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Reschedule(r.Context(), id, booking.RescheduleRequest{
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Location:  req.Location,
			Notes:     req.Notes,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req CancelAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		cancelledBy, err := uuid.Parse(req.CancelledBy)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_cancelled_by", "cancelled_by must be a valid UUID")
			return
		}

		appt, err := svc.Cancel(r.Context(), id, req.Reason, cancelledBy)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func transitionHandler(apply func(ctx context.Context, id uuid.UUID) (*booking.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		appt, err := apply(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func confirmAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return transitionHandler(svc.Confirm)
}

func startAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return transitionHandler(svc.Start)
}

func completeAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return transitionHandler(svc.Complete)
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrMissingParty),
		errors.Is(err, booking.ErrInvalidInterval),
		errors.Is(err, booking.ErrInvalidRecurrence),
		errors.Is(err, booking.ErrNothingToUpdate):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, caregiver.ErrCaregiverNotFound):
		writeError(w, http.StatusNotFound, "caregiver_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, booking.ErrCaregiverBusy):
		writeError(w, http.StatusConflict, "caregiver_busy", "caregiver schedule is being updated, please retry shortly")
	case errors.Is(err, booking.ErrCaregiverSuspended):
		writeError(w, http.StatusConflict, "caregiver_suspended", err.Error())
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
