package admin

import (
	"net/http"
	"storeadmin_server/api/middleware"
	"storeadmin_server/handling"
	"storeadmin_server/lib"
	"storeadmin_server/services"
	"storeadmin_server/structs"

	"github.com/MonkyMars/gecho"
)

func (ar *AdminRoutesManager) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	order, err := ar.orderService.Get(r.Context(), id)
	if err != nil {
		handling.HandleError(err, "fetching order", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("success.order.fetched"),
		gecho.WithData(order),
		gecho.Send(),
	)
}

func (ar *AdminRoutesManager) ListOrderEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	events, err := ar.orderService.Events(r.Context(), id)
	if err != nil {
		handling.HandleError(err, "listing order events", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("success.order.eventsFetched"),
		gecho.WithData(events),
		gecho.Send(),
	)
}

// UpdateOrderStatus moves an order along one lifecycle edge
func (ar *AdminRoutesManager) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	body, err := lib.ExtractAndValidateBody[structs.TransitionRequest](r)
	if err != nil {
		handling.HandleError(err, "decoding status update", ar.logger, w)
		return
	}

	result, err := ar.orderService.Transition(r.Context(), id, body.Status, body.Note, middleware.ActorFromContext(r.Context()))
	if err != nil {
		handling.HandleError(err, "updating order status", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("success.order.statusUpdated"),
		gecho.WithData(result),
		gecho.Send(),
	)
}

// SaveShipment stores tracking details, shipping the order when it is processing
func (ar *AdminRoutesManager) SaveShipment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	body, err := lib.ExtractAndValidateBody[structs.ShipmentRequest](r)
	if err != nil {
		handling.HandleError(err, "decoding shipment", ar.logger, w)
		return
	}

	result, err := ar.orderService.Ship(r.Context(), id, services.ShipmentInput{
		Carrier:        body.Carrier,
		CourierName:    body.CourierName,
		TrackingNumber: body.TrackingNumber,
		TrackingURL:    body.TrackingURL,
	}, middleware.ActorFromContext(r.Context()))
	if err != nil {
		handling.HandleError(err, "saving shipment", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("success.order.shipmentSaved"),
		gecho.WithData(result),
		gecho.Send(),
	)
}

func (ar *AdminRoutesManager) AddOrderEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	body, err := lib.ExtractAndValidateBody[structs.TimelineEntryRequest](r)
	if err != nil {
		handling.HandleError(err, "decoding timeline entry", ar.logger, w)
		return
	}

	event, err := ar.orderService.AddTimelineEntry(r.Context(), id, body.Status, body.Note, middleware.ActorFromContext(r.Context()))
	if err != nil {
		handling.HandleError(err, "adding order event", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("success.order.eventAdded"),
		gecho.WithData(event),
		gecho.Send(),
	)
}

func (ar *AdminRoutesManager) UpdateOrderAdminNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	body, err := lib.ExtractAndValidateBody[structs.AdminNotesRequest](r)
	if err != nil {
		handling.HandleError(err, "decoding admin notes", ar.logger, w)
		return
	}

	order, err := ar.orderService.UpdateAdminNotes(r.Context(), id, body.AdminNotes)
	if err != nil {
		handling.HandleError(err, "updating order admin notes", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("success.order.notesUpdated"),
		gecho.WithData(order),
		gecho.Send(),
	)
}
