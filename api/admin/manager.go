package admin

import (
	"storeadmin_server/api/middleware"
	"storeadmin_server/services"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type AdminRoutesManager struct {
	logger         *gecho.Logger
	orderService   *services.OrderService
	returnService  *services.ReturnService
	bookingService *services.BookingService
	statsService   *services.StatsService
	mw             *middleware.Middleware
}

func NewAdminRoutesManager(
	logger *gecho.Logger,
	orderService *services.OrderService,
	returnService *services.ReturnService,
	bookingService *services.BookingService,
	statsService *services.StatsService,
	mw *middleware.Middleware,
) *AdminRoutesManager {
	return &AdminRoutesManager{
		logger:         logger,
		orderService:   orderService,
		returnService:  returnService,
		bookingService: bookingService,
		statsService:   statsService,
		mw:             mw,
	}
}

func (ar *AdminRoutesManager) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(ar.mw.AdminAuthMiddleware)

		r.Get("/stats", ar.GetDashboardStats)
		r.Get("/stats/orders", ar.GetOrderStats)
		r.Get("/stats/bookings", ar.GetBookingStats)
		r.Get("/stats/returns", ar.GetReturnStats)

		r.Route("/orders/{id}", func(r chi.Router) {
			r.Get("/", ar.GetOrder)
			r.Get("/events", ar.ListOrderEvents)
			r.Post("/events", ar.AddOrderEvent)
			r.Put("/status", ar.UpdateOrderStatus)
			r.Post("/shipment", ar.SaveShipment)
			r.Put("/admin-notes", ar.UpdateOrderAdminNotes)
		})

		r.Route("/returns/{id}", func(r chi.Router) {
			r.Get("/", ar.GetReturn)
			r.Get("/events", ar.ListReturnEvents)
			r.Put("/status", ar.UpdateReturnStatus)
			r.Post("/refund", ar.RefundReturn)
			r.Post("/replacement", ar.ShipReplacement)
			r.Put("/admin-notes", ar.UpdateReturnAdminNotes)
		})

		r.Route("/bookings/{id}", func(r chi.Router) {
			r.Get("/", ar.GetBooking)
			r.Get("/events", ar.ListBookingEvents)
			r.Put("/status", ar.UpdateBookingStatus)
		})
	})
}
