package appointment

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/medicure/hms-api/pkg/errors"

	"github.com/medicure/hms-api/internal/handler"
	"github.com/medicure/hms-api/internal/model"
	"github.com/medicure/hms-api/internal/service/scheduling"
)

type Handler struct {
	service *scheduling.Service
}

func NewHandler(service *scheduling.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewValidation(err.Error()))
		return
	}

	apt, err := h.service.CreateAppointment(c.Request.Context(), handler.ActorID(c), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(apt))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewValidation("invalid appointment ID"))
		return
	}

	apt, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	if err := h.authorizeRead(c, apt); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) authorizeRead(c *gin.Context, apt *model.Appointment) error {
	switch handler.ActorRole(c) {
	case model.RoleAdmin:
		return nil
	case model.RoleDoctor:
		if apt.DoctorID != handler.ActorID(c) {
			return apperrors.NewForbidden("appointment belongs to another doctor")
		}
	case model.RolePatient:
		if apt.PatientID != handler.ActorID(c) {
			return apperrors.NewForbidden("appointment belongs to another patient")
		}
	}
	return nil
}

func (h *Handler) ListAppointments(c *gin.Context) {
	filters := &model.AppointmentFilters{}

	// Doctors and patients only ever see their own schedule.
	switch handler.ActorRole(c) {
	case model.RoleDoctor:
		filters.DoctorID = handler.ActorID(c)
	case model.RolePatient:
		filters.PatientID = handler.ActorID(c)
	default:
		if id := c.Query("doctor_id"); id != "" {
			doctorID, err := uuid.Parse(id)
			if err != nil {
				c.Error(apperrors.NewValidation("invalid doctor ID"))
				return
			}
			filters.DoctorID = doctorID
		}
		if id := c.Query("patient_id"); id != "" {
			patientID, err := uuid.Parse(id)
			if err != nil {
				c.Error(apperrors.NewValidation("invalid patient ID"))
				return
			}
			filters.PatientID = patientID
		}
	}

	if status := c.Query("status"); status != "" {
		s := model.AppointmentStatus(status)
		if !s.Valid() {
			c.Error(apperrors.NewValidation("invalid appointment status"))
			return
		}
		filters.Status = s
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			c.Error(apperrors.NewValidation("invalid from date"))
			return
		}
		filters.FromDate = t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			c.Error(apperrors.NewValidation("invalid to date"))
			return
		}
		filters.ToDate = t
	}

	appointments, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointments))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewValidation("invalid appointment ID"))
		return
	}

	var req model.UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewValidation(err.Error()))
		return
	}

	apt, err := h.service.UpdateStatus(c.Request.Context(), id, handler.ActorID(c), handler.ActorRole(c), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) Reschedule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewValidation("invalid appointment ID"))
		return
	}

	var req model.RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewValidation(err.Error()))
		return
	}

	apt, err := h.service.Reschedule(c.Request.Context(), id, handler.ActorID(c), handler.ActorRole(c), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) CheckIn(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewValidation("invalid appointment ID"))
		return
	}

	apt, err := h.service.CheckIn(c.Request.Context(), id, handler.ActorID(c), handler.ActorRole(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) RecordStart(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewValidation("invalid appointment ID"))
		return
	}

	apt, err := h.service.RecordStart(c.Request.Context(), id, handler.ActorID(c), handler.ActorRole(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) RecordEnd(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewValidation("invalid appointment ID"))
		return
	}

	apt, err := h.service.RecordEnd(c.Request.Context(), id, handler.ActorID(c), handler.ActorRole(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) AdminUpdate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewValidation("invalid appointment ID"))
		return
	}

	var req model.AdminUpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewValidation(err.Error()))
		return
	}

	apt, err := h.service.AdminUpdate(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewValidation("invalid appointment ID"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
