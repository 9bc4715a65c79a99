package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusware/registrar/internal/httperr"
	"github.com/campusware/registrar/internal/result"
)

// GET /semesters/{semesterID}
func GetSemesterHandler(svc *result.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sem, err := svc.GetSemester(r.Context(), chi.URLParam(r, "semesterID"))
		if err != nil {
			httperr.Write(w, err)
			return
		}
		writeJSON(w, sem)
	}
}

// POST /semesters/{semesterID}/publish
func PublishResultsHandler(svc *result.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sem, err := svc.PublishResults(r.Context(), chi.URLParam(r, "semesterID"))
		if err != nil {
			httperr.Write(w, err)
			return
		}
		writeJSON(w, sem)
	}
}

// POST /semesters/{semesterID}/freeze
func FreezeResultsHandler(svc *result.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sem, err := svc.FreezeResults(r.Context(), chi.URLParam(r, "semesterID"))
		if err != nil {
			httperr.Write(w, err)
			return
		}
		writeJSON(w, sem)
	}
}
