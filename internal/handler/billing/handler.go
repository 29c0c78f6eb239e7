package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/medicure/hms-api/pkg/errors"

	"github.com/medicure/hms-api/internal/handler"
	"github.com/medicure/hms-api/internal/model"
	"github.com/medicure/hms-api/internal/service/billing"
)

type Handler struct {
	service *billing.Service
}

func NewHandler(service *billing.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateInvoice(c *gin.Context) {
	var req model.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewValidation(err.Error()))
		return
	}

	invoice, err := h.service.CreateInvoice(c.Request.Context(), handler.ActorID(c), handler.ActorRole(c), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(invoice))
}

func (h *Handler) GetInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewValidation("invalid invoice ID"))
		return
	}

	invoice, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	switch handler.ActorRole(c) {
	case model.RoleDoctor:
		if invoice.DoctorID != handler.ActorID(c) {
			c.Error(apperrors.NewForbidden("invoice belongs to another doctor"))
			return
		}
	case model.RolePatient:
		if invoice.PatientID != handler.ActorID(c) {
			c.Error(apperrors.NewForbidden("invoice belongs to another patient"))
			return
		}
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(invoice))
}

func (h *Handler) ListInvoices(c *gin.Context) {
	var (
		invoices []*model.Invoice
		err      error
	)
	switch handler.ActorRole(c) {
	case model.RoleAdmin:
		invoices, err = h.service.List(c.Request.Context())
	case model.RoleDoctor:
		invoices, err = h.service.ListByDoctor(c.Request.Context(), handler.ActorID(c))
	default:
		invoices, err = h.service.ListByPatient(c.Request.Context(), handler.ActorID(c))
	}
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(invoices))
}

func (h *Handler) UpdatePaymentStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewValidation("invalid invoice ID"))
		return
	}

	var req model.UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewValidation(err.Error()))
		return
	}

	invoice, err := h.service.UpdatePaymentStatus(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(invoice))
}

func (h *Handler) RevenueStats(c *gin.Context) {
	stats, err := h.service.RevenueStats(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(stats))
}
