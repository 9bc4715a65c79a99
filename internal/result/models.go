package result

import (
	"database/sql"
	"math"

	"github.com/campusware/registrar/internal/event"
	"github.com/campusware/registrar/internal/gradescale"
	"github.com/campusware/registrar/internal/notify"
)

const (
	StatusPending  = "pending"
	StatusPass     = "pass"
	StatusFail     = "fail"
	StatusPromoted = "promoted"
)

// Grade is the derived per-course outcome row. Recomputed, never hand-edited.
type Grade struct {
	StudentID   string  `json:"student_id"`
	CourseID    string  `json:"course_id"`
	SemesterID  string  `json:"semester_id"`
	Marks       float64 `json:"marks"` // final weighted percentage, 2dp
	Grade       string  `json:"grade"`
	GradePoints float64 `json:"grade_points"`
	CreditHours float64 `json:"credit_hours"`
}

type SemesterResult struct {
	StudentID    string  `json:"student_id"`
	SemesterID   string  `json:"semester_id"`
	SGPA         float64 `json:"sgpa"`
	CGPA         float64 `json:"cgpa"`
	TotalCredits float64 `json:"total_credits"`
	Status       string  `json:"status"`
}

// Service runs the result pipeline: grade calculation, GPA aggregation,
// classification and publication. All state lives in the store; every write
// path re-reads before writing.
type Service struct {
	db       *sql.DB
	scale    *gradescale.Store
	bus      *event.Bus
	notifier notify.Notifier
}

func NewService(db *sql.DB, scale *gradescale.Store, bus *event.Bus, n notify.Notifier) *Service {
	if n == nil {
		n = notify.Noop{}
	}
	return &Service{db: db, scale: scale, bus: bus, notifier: n}
}

// trunc2 drops everything past two decimals. Used for percentages at the
// persistence boundary; internal accumulation keeps full precision.
func trunc2(v float64) float64 { return math.Trunc(v*100) / 100 }

// round2 is for GPA figures in responses.
func round2(v float64) float64 { return math.Round(v*100) / 100 }
