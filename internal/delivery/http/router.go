package http

import (
	"net/http"

	"go-consultation-service/internal/delivery/http/handler"
	"go-consultation-service/internal/delivery/http/middleware"
	"go-consultation-service/internal/domain/entity"

	"github.com/gorilla/mux"
)

type Router struct {
	router             *mux.Router
	appointmentHandler *handler.AppointmentHandler
	queueHandler       *handler.QueueHandler
	auditLogHandler    *handler.AuditLogHandler
	authMiddleware     *middleware.AuthMiddleware
	corsMiddleware     *middleware.CORSMiddleware
}

func NewRouter(
	appointmentHandler *handler.AppointmentHandler,
	queueHandler *handler.QueueHandler,
	auditLogHandler *handler.AuditLogHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:             mux.NewRouter(),
		appointmentHandler: appointmentHandler,
		queueHandler:       queueHandler,
		auditLogHandler:    auditLogHandler,
		authMiddleware:     authMiddleware,
		corsMiddleware:     corsMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Appointment routes (protected)
	appointments := api.PathPrefix("/appointments").Subrouter()
	appointments.Use(r.authMiddleware.Authenticate)
	appointments.HandleFunc("", r.appointmentHandler.CreateAppointment).Methods(http.MethodPost)
	appointments.HandleFunc("/user", r.appointmentHandler.GetMyAppointments).Methods(http.MethodGet)
	appointments.HandleFunc("/upcoming", r.appointmentHandler.GetUpcomingAppointments).Methods(http.MethodGet)
	appointments.HandleFunc("/specialist/today", r.appointmentHandler.GetTodayAppointments).Methods(http.MethodGet)
	appointments.HandleFunc("/{id}", r.appointmentHandler.GetAppointment).Methods(http.MethodGet)
	appointments.HandleFunc("/{id}/start", r.appointmentHandler.StartCall).Methods(http.MethodPost)
	appointments.HandleFunc("/{id}/end", r.appointmentHandler.EndCall).Methods(http.MethodPost)
	appointments.HandleFunc("/{id}/cancel", r.appointmentHandler.CancelAppointment).Methods(http.MethodPost)
	appointments.HandleFunc("/{id}/no-show", r.appointmentHandler.MarkNoShow).Methods(http.MethodPost)
	appointments.HandleFunc("/{id}/call", r.appointmentHandler.GetCallInfo).Methods(http.MethodGet)
	appointments.HandleFunc("/{id}/notes", r.appointmentHandler.UpdateNotes).Methods(http.MethodPatch)

	// Queue routes for specialists (protected - specialist only).
	// Registered before the {specialistId} routes so "/queue" and
	// "/queue/next" are not swallowed by the parameterized matcher.
	specialistQueue := api.PathPrefix("/queue").Subrouter()
	specialistQueue.Use(r.authMiddleware.Authenticate)
	specialistQueue.Use(middleware.RequireRole(entity.RoleIDSpecialist))
	specialistQueue.HandleFunc("", r.queueHandler.GetMyQueue).Methods(http.MethodGet)
	specialistQueue.HandleFunc("/next", r.queueHandler.ProcessNext).Methods(http.MethodPost)

	// Queue routes for users (protected)
	queue := api.PathPrefix("/queue").Subrouter()
	queue.Use(r.authMiddleware.Authenticate)
	queue.HandleFunc("/{specialistId}", r.queueHandler.JoinQueue).Methods(http.MethodPost)
	queue.HandleFunc("/{specialistId}", r.queueHandler.GetQueuePosition).Methods(http.MethodGet)
	queue.HandleFunc("/{specialistId}", r.queueHandler.LeaveQueue).Methods(http.MethodDelete)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetAllAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
