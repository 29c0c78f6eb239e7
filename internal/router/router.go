package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/medicure/hms-api/internal/handler/appointment"
	"github.com/medicure/hms-api/internal/handler/billing"
	"github.com/medicure/hms-api/internal/handler/health"
	"github.com/medicure/hms-api/internal/handler/medication"
	"github.com/medicure/hms-api/internal/handler/prescription"
	"github.com/medicure/hms-api/internal/middleware"
	"github.com/medicure/hms-api/internal/model"
)

type Config struct {
	RateLimitEnabled  bool
	RequestsPerSecond float64
	Burst             int
	CORS              middleware.CORSConfig
	MetricsEnabled    bool
	MetricsPath       string
}

type Router struct {
	engine        *gin.Engine
	auth          *middleware.AuthMiddleware
	healthH       *health.Handler
	appointmentH  *appointment.Handler
	prescriptionH *prescription.Handler
	billingH      *billing.Handler
	medicationH   *medication.Handler
	config        Config
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	healthH *health.Handler,
	appointmentH *appointment.Handler,
	prescriptionH *prescription.Handler,
	billingH *billing.Handler,
	medicationH *medication.Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		middleware.CORS(config.CORS),
	)

	if config.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(config.RequestsPerSecond),
			Burst: config.Burst,
		})
		engine.Use(limiter.RateLimit())
	}

	return &Router{
		engine:        engine,
		auth:          auth,
		healthH:       healthH,
		appointmentH:  appointmentH,
		prescriptionH: prescriptionH,
		billingH:      billingH,
		medicationH:   medicationH,
		config:        config,
	}
}

func (r *Router) Setup() {
	r.engine.GET("/health", r.healthH.Check)
	if r.config.MetricsEnabled {
		r.engine.GET(r.config.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	api := r.engine.Group("/api/v1")
	api.Use(r.auth.Authenticate())

	r.setupAppointmentRoutes(api)
	r.setupPrescriptionRoutes(api)
	r.setupBillingRoutes(api)
	r.setupInventoryRoutes(api)
}

func (r *Router) setupAppointmentRoutes(rg *gin.RouterGroup) {
	appointments := rg.Group("/appointments")
	{
		appointments.POST("", r.auth.RequireRole(model.RolePatient, model.RoleAdmin), r.appointmentH.CreateAppointment)
		appointments.GET("", r.appointmentH.ListAppointments)
		appointments.GET("/:id", r.appointmentH.GetAppointment)
		appointments.PATCH("/:id/status", r.appointmentH.UpdateStatus)
		appointments.POST("/:id/reschedule", r.auth.RequireRole(model.RoleDoctor, model.RoleAdmin), r.appointmentH.Reschedule)
		appointments.POST("/:id/check-in", r.auth.RequireRole(model.RolePatient, model.RoleAdmin), r.appointmentH.CheckIn)
		appointments.POST("/:id/start", r.auth.RequireRole(model.RoleDoctor, model.RoleAdmin), r.appointmentH.RecordStart)
		appointments.POST("/:id/end", r.auth.RequireRole(model.RoleDoctor, model.RoleAdmin), r.appointmentH.RecordEnd)
		appointments.PUT("/:id", r.auth.RequireRole(model.RoleAdmin), r.appointmentH.AdminUpdate)
		appointments.DELETE("/:id", r.auth.RequireRole(model.RoleAdmin), r.appointmentH.DeleteAppointment)
	}
}

func (r *Router) setupPrescriptionRoutes(rg *gin.RouterGroup) {
	prescriptions := rg.Group("/prescriptions")
	{
		prescriptions.POST("", r.auth.RequireRole(model.RoleDoctor), r.prescriptionH.CreatePrescription)
		prescriptions.GET("", r.auth.RequireRole(model.RoleDoctor, model.RolePatient), r.prescriptionH.ListPrescriptions)
		prescriptions.GET("/:id", r.prescriptionH.GetPrescription)
	}

	templates := rg.Group("/templates", r.auth.RequireRole(model.RoleDoctor))
	{
		templates.POST("", r.prescriptionH.CreateTemplate)
		templates.GET("", r.prescriptionH.ListTemplates)
		templates.GET("/:id", r.prescriptionH.GetTemplate)
		templates.PUT("/:id", r.prescriptionH.UpdateTemplate)
		templates.DELETE("/:id", r.prescriptionH.DeleteTemplate)
	}
}

func (r *Router) setupBillingRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	{
		invoices.POST("", r.auth.RequireRole(model.RoleDoctor, model.RoleAdmin), r.billingH.CreateInvoice)
		invoices.GET("", r.billingH.ListInvoices)
		invoices.GET("/stats", r.auth.RequireRole(model.RoleAdmin), r.billingH.RevenueStats)
		invoices.GET("/:id", r.billingH.GetInvoice)
		invoices.PATCH("/:id/payment", r.auth.RequireRole(model.RoleAdmin), r.billingH.UpdatePaymentStatus)
	}
}

func (r *Router) setupInventoryRoutes(rg *gin.RouterGroup) {
	medications := rg.Group("/medications")
	{
		medications.POST("", r.auth.RequireRole(model.RoleAdmin), r.medicationH.CreateMedication)
		medications.GET("", r.auth.RequireRole(model.RoleDoctor, model.RoleAdmin), r.medicationH.ListMedications)
		medications.GET("/low-stock", r.auth.RequireRole(model.RoleAdmin), r.medicationH.ListLowStock)
		medications.GET("/expiring", r.auth.RequireRole(model.RoleAdmin), r.medicationH.ListExpiring)
		medications.GET("/:id", r.auth.RequireRole(model.RoleDoctor, model.RoleAdmin), r.medicationH.GetMedication)
		medications.PUT("/:id", r.auth.RequireRole(model.RoleAdmin), r.medicationH.UpdateMedication)
		medications.DELETE("/:id", r.auth.RequireRole(model.RoleAdmin), r.medicationH.DeleteMedication)
	}

	dispenses := rg.Group("/dispenses")
	{
		dispenses.GET("", r.auth.RequireRole(model.RoleAdmin, model.RolePatient), r.medicationH.ListDispenses)
		dispenses.GET("/:id", r.auth.RequireRole(model.RoleAdmin, model.RolePatient), r.medicationH.GetDispense)
		dispenses.POST("/:id/fulfill", r.auth.RequireRole(model.RoleAdmin), r.medicationH.FulfillDispense)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
