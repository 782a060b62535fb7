package admin

import (
	"net/http"
	"storeadmin_server/api/middleware"
	"storeadmin_server/handling"
	"storeadmin_server/lib"
	"storeadmin_server/structs"

	"github.com/MonkyMars/gecho"
)

func (ar *AdminRoutesManager) GetReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ret, err := ar.returnService.Get(r.Context(), id)
	if err != nil {
		handling.HandleError(err, "fetching return", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("success.return.fetched"),
		gecho.WithData(ret),
		gecho.Send(),
	)
}

func (ar *AdminRoutesManager) ListReturnEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	events, err := ar.returnService.Events(r.Context(), id)
	if err != nil {
		handling.HandleError(err, "listing return events", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("success.return.eventsFetched"),
		gecho.WithData(events),
		gecho.Send(),
	)
}

func (ar *AdminRoutesManager) UpdateReturnStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	body, err := lib.ExtractAndValidateBody[structs.TransitionRequest](r)
	if err != nil {
		handling.HandleError(err, "decoding status update", ar.logger, w)
		return
	}

	result, err := ar.returnService.Transition(r.Context(), id, body.Status, body.Note, middleware.ActorFromContext(r.Context()))
	if err != nil {
		handling.HandleError(err, "updating return status", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("success.return.statusUpdated"),
		gecho.WithData(result),
		gecho.Send(),
	)
}

func (ar *AdminRoutesManager) RefundReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	body, err := lib.ExtractAndValidateBody[structs.RefundRequest](r)
	if err != nil {
		handling.HandleError(err, "decoding refund", ar.logger, w)
		return
	}

	result, err := ar.returnService.Refund(r.Context(), id, body.Note, middleware.ActorFromContext(r.Context()))
	if err != nil {
		handling.HandleError(err, "refunding return", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("success.return.refunded"),
		gecho.WithData(result),
		gecho.Send(),
	)
}

// ShipReplacement creates the replacement order for a received return
func (ar *AdminRoutesManager) ShipReplacement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	body, err := lib.ExtractAndValidateBody[structs.ReplacementRequest](r)
	if err != nil {
		handling.HandleError(err, "decoding replacement", ar.logger, w)
		return
	}

	result, err := ar.returnService.ShipReplacement(r.Context(), id, *body, middleware.ActorFromContext(r.Context()))
	if err != nil {
		handling.HandleError(err, "shipping replacement", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("success.return.replacementCreated"),
		gecho.WithData(result),
		gecho.Send(),
	)
}

func (ar *AdminRoutesManager) UpdateReturnAdminNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	body, err := lib.ExtractAndValidateBody[structs.AdminNotesRequest](r)
	if err != nil {
		handling.HandleError(err, "decoding admin notes", ar.logger, w)
		return
	}

	ret, err := ar.returnService.UpdateAdminNotes(r.Context(), id, body.AdminNotes)
	if err != nil {
		handling.HandleError(err, "updating return admin notes", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("success.return.notesUpdated"),
		gecho.WithData(ret),
		gecho.Send(),
	)
}
