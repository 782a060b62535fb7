package admin

import (
	"net/http"
	"storeadmin_server/handling"

	"github.com/MonkyMars/gecho"
)

func (ar *AdminRoutesManager) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := ar.statsService.Dashboard(r.Context())
	if err != nil {
		handling.HandleError(err, "computing dashboard stats", ar.logger, w)
		return
	}
	gecho.Success(w, gecho.WithMessage("success.stats.fetched"), gecho.WithData(stats), gecho.Send())
}

func (ar *AdminRoutesManager) GetOrderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := ar.statsService.Orders(r.Context())
	if err != nil {
		handling.HandleError(err, "computing order stats", ar.logger, w)
		return
	}
	gecho.Success(w, gecho.WithMessage("success.stats.fetched"), gecho.WithData(stats), gecho.Send())
}

func (ar *AdminRoutesManager) GetBookingStats(w http.ResponseWriter, r *http.Request) {
	stats, err := ar.statsService.Bookings(r.Context())
	if err != nil {
		handling.HandleError(err, "computing booking stats", ar.logger, w)
		return
	}
	gecho.Success(w, gecho.WithMessage("success.stats.fetched"), gecho.WithData(stats), gecho.Send())
}

func (ar *AdminRoutesManager) GetReturnStats(w http.ResponseWriter, r *http.Request) {
	stats, err := ar.statsService.Returns(r.Context())
	if err != nil {
		handling.HandleError(err, "computing return stats", ar.logger, w)
		return
	}
	gecho.Success(w, gecho.WithMessage("success.stats.fetched"), gecho.WithData(stats), gecho.Send())
}
