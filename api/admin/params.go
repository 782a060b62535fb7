package admin

import (
	"net/http"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// pathID parses the {id} route parameter, answering 400 when it is not a UUID
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		gecho.BadRequest(w,
			gecho.WithMessage("error.request.invalidId"),
			gecho.WithData(map[string]string{"error": err.Error()}),
			gecho.Send(),
		)
		return uuid.Nil, false
	}
	return id, true
}
