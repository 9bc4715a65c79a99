package http

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	auth "github.com/campusware/registrar/internal/auth/middleware"
	"github.com/campusware/registrar/internal/httperr"
	"github.com/campusware/registrar/internal/marks"
	"github.com/campusware/registrar/internal/storage"
)

type enterMarksReq struct {
	StudentID      string  `json:"student_id" validate:"required"`
	ExamScheduleID string  `json:"exam_schedule_id" validate:"required"`
	ObtainedMarks  float64 `json:"obtained_marks" validate:"gte=0,lte=100"`
}

type editMarksReq struct {
	ObtainedMarks float64 `json:"obtained_marks" validate:"gte=0,lte=100"`
}

type lockReq struct {
	Locked bool `json:"locked"`
}

// POST /marks
func EnterMarksHandler(store *marks.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req enterMarksReq
		if err := decode(r, &req); err != nil {
			httperr.Write(w, err)
			return
		}
		gradedBy := auth.SubjectFromContext(r.Context())
		m, err := store.EnterMarks(r.Context(), gradedBy, req.StudentID, req.ExamScheduleID, req.ObtainedMarks)
		if err != nil {
			httperr.Write(w, err)
			return
		}
		writeJSON(w, m)
	}
}

// PUT /marks/{markID}
func EditMarksHandler(store *marks.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		markID := chi.URLParam(r, "markID")
		var req editMarksReq
		if err := decode(r, &req); err != nil {
			httperr.Write(w, err)
			return
		}
		gradedBy := auth.SubjectFromContext(r.Context())
		m, err := store.EditMarks(r.Context(), gradedBy, markID, req.ObtainedMarks)
		if err != nil {
			httperr.Write(w, err)
			return
		}
		writeJSON(w, m)
	}
}

// POST /exam-schedules/{scheduleID}/marks/bulk
// Accepts either a JSON array of rows or a multipart CSV file=; the raw CSV
// is archived before processing.
func BulkUploadHandler(store *marks.Store, blobs *storage.FSStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheduleID := chi.URLParam(r, "scheduleID")
		gradedBy := auth.SubjectFromContext(r.Context())

		var rows []marks.BulkRow
		ct := r.Header.Get("Content-Type")
		if strings.HasPrefix(ct, "multipart/form-data") {
			f, _, err := r.FormFile("file")
			if err != nil {
				httperr.Write(w, httperr.BadRequest("file required"))
				return
			}
			defer f.Close()
			raw, err := io.ReadAll(f)
			if err != nil {
				httperr.Write(w, httperr.BadRequest("read file: %v", err))
				return
			}
			if _, err := blobs.Put(storage.UploadKey(scheduleID), bytes.NewReader(raw)); err != nil {
				httperr.Write(w, err)
				return
			}
			rows, err = marks.ParseCSV(bytes.NewReader(raw))
			if err != nil {
				httperr.Write(w, httperr.BadRequest("bad csv: %v", err))
				return
			}
		} else {
			var req struct {
				Rows []marks.BulkRow `json:"rows" validate:"required,min=1"`
			}
			if err := decode(r, &req); err != nil {
				httperr.Write(w, err)
				return
			}
			rows = req.Rows
		}
		if len(rows) == 0 {
			httperr.Write(w, httperr.BadRequest("no rows to upload"))
			return
		}
		writeJSON(w, store.BulkUpload(r.Context(), gradedBy, scheduleID, rows))
	}
}

// POST /exam-schedules/{scheduleID}/lock
func LockMarksHandler(store *marks.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheduleID := chi.URLParam(r, "scheduleID")
		var req lockReq
		if err := decode(r, &req); err != nil {
			httperr.Write(w, err)
			return
		}
		if err := store.Lock(r.Context(), scheduleID, req.Locked); err != nil {
			httperr.Write(w, err)
			return
		}
		sc, err := store.GetSchedule(r.Context(), scheduleID)
		if err != nil {
			httperr.Write(w, err)
			return
		}
		writeJSON(w, sc)
	}
}
