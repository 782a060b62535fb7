package handling

import (
	"context"
	"errors"
	"net/http"
	"storeadmin_server/lib"

	"github.com/MonkyMars/gecho"
)

// HandleError answers w according to the kind of err. msg is logged for
// server side failures only.
func HandleError(err error, msg string, logger *gecho.Logger, w http.ResponseWriter) {
	var inconsistent *lib.InconsistentStateError
	if errors.As(err, &inconsistent) {
		logger.Error("Compound write left partial state",
			gecho.Field("error", err),
			gecho.Field("msg", msg),
			gecho.Field("step", inconsistent.Step),
			gecho.WithCallerSkip(3),
		)
		gecho.InternalServerError(w,
			gecho.WithMessage(inconsistent.Error()),
			gecho.WithData(map[string]any{
				"step":      inconsistent.Step,
				"return_id": inconsistent.ReturnID,
				"order_id":  inconsistent.OrderID,
			}),
			gecho.Send(),
		)
		return
	}

	var invalid *lib.ValidationError
	switch {
	case errors.As(err, &invalid):
		gecho.BadRequest(w, gecho.WithMessage("Invalid request body"), gecho.WithData(invalid), gecho.Send())
		return
	case errors.Is(err, lib.ErrValidation):
		gecho.BadRequest(w, gecho.WithMessage(err.Error()), gecho.Send())
		return
	case errors.Is(err, lib.ErrNotFound):
		gecho.NotFound(w, gecho.WithMessage("Not found"), gecho.Send())
		return
	case errors.Is(err, lib.ErrConflict):
		gecho.Conflict(w, gecho.WithMessage("The record was changed by someone else, reload and retry"), gecho.Send())
		return
	case lib.IsTransient(err), errors.Is(err, context.DeadlineExceeded):
		logger.Warn("Backend temporarily unavailable", gecho.Field("error", err), gecho.Field("msg", msg))
		gecho.ServiceUnavailable(w, gecho.WithMessage("Temporarily unavailable, retry shortly"), gecho.Send())
		return
	}

	logger.Error("An error occurred", gecho.Field("error", err), gecho.Field("msg", msg), gecho.WithCallerSkip(3))
	gecho.InternalServerError(w, gecho.Send())
}
