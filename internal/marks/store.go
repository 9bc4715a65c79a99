package marks

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/campusware/registrar/internal/httperr"
)

type Mark struct {
	ID             string  `json:"id"`
	StudentID      string  `json:"student_id"`
	ExamScheduleID string  `json:"exam_schedule_id"`
	ObtainedMarks  float64 `json:"obtained_marks"`
	TotalMarks     float64 `json:"total_marks"`
	EnteredBy      string  `json:"entered_by"`
	EntryDate      int64   `json:"entry_date"`
}

type Schedule struct {
	ID          string  `json:"id"`
	CourseID    string  `json:"course_id"`
	SemesterID  string  `json:"semester_id"`
	ExamType    string  `json:"exam_type"`
	TotalMarks  float64 `json:"total_marks"`
	Weightage   float64 `json:"weightage"`
	MarksLocked bool    `json:"marks_locked"`
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) GetSchedule(ctx context.Context, id string) (Schedule, error) {
	var sc Schedule
	err := s.db.QueryRowContext(ctx,
		`SELECT id, course_id, semester_id, exam_type, total_marks, weightage, marks_locked
		 FROM exam_schedules WHERE id=$1`, id).
		Scan(&sc.ID, &sc.CourseID, &sc.SemesterID, &sc.ExamType, &sc.TotalMarks, &sc.Weightage, &sc.MarksLocked)
	if errors.Is(err, sql.ErrNoRows) {
		return Schedule{}, httperr.NotFound("exam schedule %s not found", id)
	}
	if err != nil {
		return Schedule{}, err
	}
	return sc, nil
}

// EnterMarks upserts a student's marks for one exam component.
func (s *Store) EnterMarks(ctx context.Context, gradedBy, studentID, scheduleID string, obtained float64) (Mark, error) {
	if obtained < 0 || obtained > 100 {
		return Mark{}, httperr.BadRequest("obtained marks must be within [0,100], got %.2f", obtained)
	}
	sc, err := s.GetSchedule(ctx, scheduleID)
	if err != nil {
		return Mark{}, err
	}
	if sc.MarksLocked {
		return Mark{}, httperr.Forbidden("marks are locked for schedule %s", scheduleID)
	}
	if obtained > sc.TotalMarks {
		return Mark{}, httperr.BadRequest("obtained marks %.2f exceed schedule total %.2f", obtained, sc.TotalMarks)
	}
	if err := s.studentExists(ctx, studentID); err != nil {
		return Mark{}, err
	}

	m := Mark{
		ID:             uuid.NewString(),
		StudentID:      studentID,
		ExamScheduleID: scheduleID,
		ObtainedMarks:  obtained,
		TotalMarks:     sc.TotalMarks,
		EnteredBy:      gradedBy,
		EntryDate:      time.Now().Unix(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO marks (id, student_id, exam_schedule_id, obtained_marks, total_marks, entered_by, entry_date)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (student_id, exam_schedule_id) DO UPDATE SET
		   obtained_marks=EXCLUDED.obtained_marks,
		   total_marks=EXCLUDED.total_marks,
		   entered_by=EXCLUDED.entered_by,
		   entry_date=EXCLUDED.entry_date`,
		m.ID, m.StudentID, m.ExamScheduleID, m.ObtainedMarks, m.TotalMarks, m.EnteredBy, m.EntryDate)
	if err != nil {
		return Mark{}, err
	}
	return s.getByKey(ctx, studentID, scheduleID)
}

// EditMarks updates an existing marks row by id; same gating as EnterMarks.
func (s *Store) EditMarks(ctx context.Context, gradedBy, markID string, obtained float64) (Mark, error) {
	if obtained < 0 || obtained > 100 {
		return Mark{}, httperr.BadRequest("obtained marks must be within [0,100], got %.2f", obtained)
	}
	var studentID, scheduleID string
	err := s.db.QueryRowContext(ctx,
		`SELECT student_id, exam_schedule_id FROM marks WHERE id=$1`, markID).
		Scan(&studentID, &scheduleID)
	if errors.Is(err, sql.ErrNoRows) {
		return Mark{}, httperr.NotFound("marks row %s not found", markID)
	}
	if err != nil {
		return Mark{}, err
	}
	sc, err := s.GetSchedule(ctx, scheduleID)
	if err != nil {
		return Mark{}, err
	}
	if sc.MarksLocked {
		return Mark{}, httperr.Forbidden("marks are locked for schedule %s", scheduleID)
	}
	if obtained > sc.TotalMarks {
		return Mark{}, httperr.BadRequest("obtained marks %.2f exceed schedule total %.2f", obtained, sc.TotalMarks)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE marks SET obtained_marks=$1, entered_by=$2, entry_date=$3 WHERE id=$4`,
		obtained, gradedBy, time.Now().Unix(), markID)
	if err != nil {
		return Mark{}, err
	}
	return s.getByKey(ctx, studentID, scheduleID)
}

// Lock toggles marks_locked on one schedule. locked=false is the admin
// override path.
func (s *Store) Lock(ctx context.Context, scheduleID string, locked bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE exam_schedules SET marks_locked=$1 WHERE id=$2`, locked, scheduleID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return httperr.NotFound("exam schedule %s not found", scheduleID)
	}
	return nil
}

// LockSemester locks every schedule under a semester inside tx. Subscribed to
// the SemesterFrozen event so the cascading lock commits with the freeze.
func (s *Store) LockSemester(ctx context.Context, tx *sql.Tx, semesterID string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE exam_schedules SET marks_locked=$1 WHERE semester_id=$2`, true, semesterID)
	return err
}

func (s *Store) studentExists(ctx context.Context, studentID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM students WHERE id=$1`, studentID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return httperr.NotFound("student %s not found", studentID)
	}
	return err
}

func (s *Store) getByKey(ctx context.Context, studentID, scheduleID string) (Mark, error) {
	var m Mark
	err := s.db.QueryRowContext(ctx,
		`SELECT id, student_id, exam_schedule_id, obtained_marks, total_marks, entered_by, entry_date
		 FROM marks WHERE student_id=$1 AND exam_schedule_id=$2`, studentID, scheduleID).
		Scan(&m.ID, &m.StudentID, &m.ExamScheduleID, &m.ObtainedMarks, &m.TotalMarks, &m.EnteredBy, &m.EntryDate)
	if errors.Is(err, sql.ErrNoRows) {
		return Mark{}, httperr.NotFound("marks for student %s on schedule %s not found", studentID, scheduleID)
	}
	if err != nil {
		return Mark{}, err
	}
	return m, nil
}
