package admin

import (
	"net/http"
	"storeadmin_server/api/middleware"
	"storeadmin_server/handling"
	"storeadmin_server/lib"
	"storeadmin_server/structs"

	"github.com/MonkyMars/gecho"
)

func (ar *AdminRoutesManager) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	booking, err := ar.bookingService.Get(r.Context(), id)
	if err != nil {
		handling.HandleError(err, "fetching booking", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("success.booking.fetched"),
		gecho.WithData(booking),
		gecho.Send(),
	)
}

func (ar *AdminRoutesManager) ListBookingEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	events, err := ar.bookingService.Events(r.Context(), id)
	if err != nil {
		handling.HandleError(err, "listing booking events", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("success.booking.eventsFetched"),
		gecho.WithData(events),
		gecho.Send(),
	)
}

func (ar *AdminRoutesManager) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	body, err := lib.ExtractAndValidateBody[structs.TransitionRequest](r)
	if err != nil {
		handling.HandleError(err, "decoding status update", ar.logger, w)
		return
	}

	result, err := ar.bookingService.Transition(r.Context(), id, body.Status, body.Note, middleware.ActorFromContext(r.Context()))
	if err != nil {
		handling.HandleError(err, "updating booking status", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("success.booking.statusUpdated"),
		gecho.WithData(result),
		gecho.Send(),
	)
}
