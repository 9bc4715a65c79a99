package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	auth "github.com/campusware/registrar/internal/auth/middleware"
	"github.com/campusware/registrar/internal/httperr"
	"github.com/campusware/registrar/internal/rbac"
	"github.com/campusware/registrar/internal/result"
)

// GET /students/{studentID}/transcript
// Students see only their own record and only published semesters; faculty
// and admin see everything.
func TranscriptHandler(svc *result.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID := chi.URLParam(r, "studentID")
		role := rbac.RoleFromContext(r.Context())
		publishedOnly := role == "student"
		if publishedOnly && auth.SubjectFromContext(r.Context()) != studentID {
			httperr.Write(w, httperr.Forbidden("not your transcript"))
			return
		}
		t, err := svc.Transcript(r.Context(), studentID, publishedOnly)
		if err != nil {
			httperr.Write(w, err)
			return
		}
		writeJSON(w, t)
	}
}
