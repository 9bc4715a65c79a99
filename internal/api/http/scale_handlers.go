package http

import (
	"net/http"

	"github.com/campusware/registrar/internal/gradescale"
	"github.com/campusware/registrar/internal/httperr"
)

type replaceScaleReq struct {
	Entries []gradescale.Entry `json:"entries" validate:"required,min=1"`
}

// GET /grade-scale
func GetScaleHandler(scale *gradescale.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := scale.GetScale(r.Context())
		if err != nil {
			httperr.Write(w, err)
			return
		}
		writeJSON(w, entries)
	}
}

// PUT /grade-scale — wholesale replacement.
func ReplaceScaleHandler(scale *gradescale.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req replaceScaleReq
		if err := decode(r, &req); err != nil {
			httperr.Write(w, err)
			return
		}
		if err := scale.ReplaceScale(r.Context(), req.Entries); err != nil {
			httperr.Write(w, err)
			return
		}
		entries, err := scale.GetScale(r.Context())
		if err != nil {
			httperr.Write(w, err)
			return
		}
		writeJSON(w, entries)
	}
}
