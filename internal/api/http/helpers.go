package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/campusware/registrar/internal/httperr"
)

var validate = validator.New()

// decode parses the JSON body into dst and runs struct validation.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return httperr.BadRequest("bad json: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		return httperr.BadRequest("%v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
