package prescription

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/medicure/hms-api/pkg/errors"

	"github.com/medicure/hms-api/internal/handler"
	"github.com/medicure/hms-api/internal/model"
	"github.com/medicure/hms-api/internal/service/prescription"
)

type Handler struct {
	service *prescription.Service
}

func NewHandler(service *prescription.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreatePrescription(c *gin.Context) {
	var req model.CreatePrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewValidation(err.Error()))
		return
	}

	p, err := h.service.CreatePrescription(c.Request.Context(), handler.ActorID(c), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(p))
}

func (h *Handler) GetPrescription(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewValidation("invalid prescription ID"))
		return
	}

	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	switch handler.ActorRole(c) {
	case model.RoleDoctor:
		if p.DoctorID != handler.ActorID(c) {
			c.Error(apperrors.NewForbidden("prescription belongs to another doctor"))
			return
		}
	case model.RolePatient:
		if p.PatientID != handler.ActorID(c) {
			c.Error(apperrors.NewForbidden("prescription belongs to another patient"))
			return
		}
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) ListPrescriptions(c *gin.Context) {
	var (
		prescriptions []*model.Prescription
		err           error
	)
	switch handler.ActorRole(c) {
	case model.RoleDoctor:
		prescriptions, err = h.service.ListByDoctor(c.Request.Context(), handler.ActorID(c))
	default:
		prescriptions, err = h.service.ListByPatient(c.Request.Context(), handler.ActorID(c))
	}
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(prescriptions))
}

func (h *Handler) CreateTemplate(c *gin.Context) {
	var req model.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewValidation(err.Error()))
		return
	}

	tpl, err := h.service.CreateTemplate(c.Request.Context(), handler.ActorID(c), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(tpl))
}

func (h *Handler) GetTemplate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewValidation("invalid template ID"))
		return
	}

	tpl, err := h.service.GetTemplate(c.Request.Context(), id, handler.ActorID(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(tpl))
}

func (h *Handler) UpdateTemplate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewValidation("invalid template ID"))
		return
	}

	var req model.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewValidation(err.Error()))
		return
	}

	tpl, err := h.service.UpdateTemplate(c.Request.Context(), id, handler.ActorID(c), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(tpl))
}

func (h *Handler) DeleteTemplate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewValidation("invalid template ID"))
		return
	}

	if err := h.service.DeleteTemplate(c.Request.Context(), id, handler.ActorID(c)); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) ListTemplates(c *gin.Context) {
	favoriteOnly := c.Query("favorite") == "true"

	templates, err := h.service.ListTemplates(c.Request.Context(), handler.ActorID(c), favoriteOnly)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(templates))
}
