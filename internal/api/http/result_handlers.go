package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusware/registrar/internal/config"
	"github.com/campusware/registrar/internal/httperr"
	"github.com/campusware/registrar/internal/result"
)

type calcReq struct {
	ExamType string `json:"exam_type,omitempty"`
}

type processReq struct {
	PassingCGPA   *float64 `json:"passing_cgpa,omitempty" validate:"omitempty,gte=0,lte=4"`
	ProbationCGPA *float64 `json:"probation_cgpa,omitempty" validate:"omitempty,gte=0,lte=4"`
}

type promoteReq struct {
	NextSemesterID string `json:"next_semester_id" validate:"required"`
}

// POST /courses/{courseID}/semesters/{semesterID}/calculate
func CalculateCourseHandler(svc *result.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req calcReq
		if r.ContentLength > 0 {
			if err := decode(r, &req); err != nil {
				httperr.Write(w, err)
				return
			}
		}
		res, err := svc.CalculateCourseGrades(r.Context(),
			chi.URLParam(r, "courseID"), chi.URLParam(r, "semesterID"), req.ExamType)
		if err != nil {
			httperr.Write(w, err)
			return
		}
		writeJSON(w, res)
	}
}

// POST /semesters/{semesterID}/calculate
func CalculateSemesterHandler(svc *result.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req calcReq
		if r.ContentLength > 0 {
			if err := decode(r, &req); err != nil {
				httperr.Write(w, err)
				return
			}
		}
		res, err := svc.CalculateSemesterGrades(r.Context(), chi.URLParam(r, "semesterID"), req.ExamType)
		if err != nil {
			httperr.Write(w, err)
			return
		}
		writeJSON(w, res)
	}
}

// GET /students/{studentID}/semesters/{semesterID}/sgpa
func SGPAHandler(svc *result.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.ComputeSGPA(r.Context(), chi.URLParam(r, "studentID"), chi.URLParam(r, "semesterID"))
		if err != nil {
			httperr.Write(w, err)
			return
		}
		writeJSON(w, res)
	}
}

// GET /students/{studentID}/cgpa
func CGPAHandler(svc *result.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.ComputeCGPA(r.Context(), chi.URLParam(r, "studentID"))
		if err != nil {
			httperr.Write(w, err)
			return
		}
		writeJSON(w, res)
	}
}

// POST /semesters/{semesterID}/gpa
func GPABatchHandler(svc *result.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.CalculateGPAForSemester(r.Context(), chi.URLParam(r, "semesterID"))
		if err != nil {
			httperr.Write(w, err)
			return
		}
		writeJSON(w, res)
	}
}

// POST /semesters/{semesterID}/process
func ProcessResultsHandler(svc *result.Service, cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req processReq
		if r.ContentLength > 0 {
			if err := decode(r, &req); err != nil {
				httperr.Write(w, err)
				return
			}
		}
		passing, probation := cfg.PassingCGPA, cfg.ProbationCGPA
		if req.PassingCGPA != nil {
			passing = *req.PassingCGPA
		}
		if req.ProbationCGPA != nil {
			probation = *req.ProbationCGPA
		}
		res, err := svc.ProcessResults(r.Context(), chi.URLParam(r, "semesterID"), passing, probation)
		if err != nil {
			httperr.Write(w, err)
			return
		}
		writeJSON(w, res)
	}
}

// POST /semesters/{semesterID}/promote
func PromoteStudentsHandler(svc *result.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req promoteReq
		if err := decode(r, &req); err != nil {
			httperr.Write(w, err)
			return
		}
		res, err := svc.PromoteStudents(r.Context(), chi.URLParam(r, "semesterID"), req.NextSemesterID)
		if err != nil {
			httperr.Write(w, err)
			return
		}
		writeJSON(w, res)
	}
}
