package result

import (
	"context"
	"database/sql"
	"errors"

	"github.com/campusware/registrar/internal/httperr"
)

type StudentFailure struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

type CourseCalcResult struct {
	CourseID   string           `json:"course_id"`
	SemesterID string           `json:"semester_id"`
	Graded     []Grade          `json:"graded"`
	Failed     []StudentFailure `json:"failed"`
}

type SemesterCalcResult struct {
	SemesterID string             `json:"semester_id"`
	Courses    []CourseCalcResult `json:"courses"`
	Errors     map[string]string  `json:"errors,omitempty"` // courseID -> error
}

// CalculateCourseGrades computes the weighted percentage for every student
// registered in course+semester and upserts their Grade rows in one
// transaction. examType optionally scopes the calculation to components of a
// single exam sitting. A student missing a component is scored only on the
// weight that has marks; per-student failures are collected, not fatal.
func (s *Service) CalculateCourseGrades(ctx context.Context, courseID, semesterID, examType string) (CourseCalcResult, error) {
	res := CourseCalcResult{CourseID: courseID, SemesterID: semesterID, Graded: []Grade{}, Failed: []StudentFailure{}}

	var creditHours float64
	err := s.db.QueryRowContext(ctx, `SELECT credit_hours FROM courses WHERE id=$1`, courseID).Scan(&creditHours)
	if errors.Is(err, sql.ErrNoRows) {
		return res, httperr.NotFound("course %s not found", courseID)
	}
	if err != nil {
		return res, err
	}
	if err := s.semesterExists(ctx, semesterID); err != nil {
		return res, err
	}

	students, err := s.registeredStudents(ctx, courseID, semesterID)
	if err != nil {
		return res, err
	}
	components, err := s.components(ctx, courseID, semesterID, examType)
	if err != nil {
		return res, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer tx.Rollback()

	for _, studentID := range students {
		g, err := s.gradeStudent(ctx, studentID, courseID, semesterID, creditHours, components)
		if err != nil {
			res.Failed = append(res.Failed, StudentFailure{StudentID: studentID, Reason: err.Error()})
			continue
		}
		if g == nil {
			continue // no marks entered yet for any component
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO grades (student_id, course_id, semester_id, marks, grade, grade_points, credit_hours)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)
			 ON CONFLICT (student_id, course_id, semester_id) DO UPDATE SET
			   marks=EXCLUDED.marks,
			   grade=EXCLUDED.grade,
			   grade_points=EXCLUDED.grade_points,
			   credit_hours=EXCLUDED.credit_hours`,
			g.StudentID, g.CourseID, g.SemesterID, g.Marks, g.Grade, g.GradePoints, g.CreditHours); err != nil {
			return res, err
		}
		res.Graded = append(res.Graded, *g)
	}
	if err := tx.Commit(); err != nil {
		return res, err
	}
	return res, nil
}

// CalculateSemesterGrades fans out over every course with registrations in
// the semester. Each course runs in its own transaction; a failure in one
// course does not roll back another.
func (s *Service) CalculateSemesterGrades(ctx context.Context, semesterID, examType string) (SemesterCalcResult, error) {
	out := SemesterCalcResult{SemesterID: semesterID, Courses: []CourseCalcResult{}, Errors: map[string]string{}}
	if err := s.semesterExists(ctx, semesterID); err != nil {
		return out, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT course_id FROM registrations WHERE semester_id=$1 ORDER BY course_id`, semesterID)
	if err != nil {
		return out, err
	}
	var courseIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return out, err
		}
		courseIDs = append(courseIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return out, err
	}

	for _, courseID := range courseIDs {
		cr, err := s.CalculateCourseGrades(ctx, courseID, semesterID, examType)
		if err != nil {
			out.Errors[courseID] = err.Error()
			continue
		}
		out.Courses = append(out.Courses, cr)
	}
	return out, nil
}

type component struct {
	id         string
	totalMarks float64
	weightage  float64
}

func (s *Service) components(ctx context.Context, courseID, semesterID, examType string) ([]component, error) {
	q := `SELECT id, total_marks, weightage FROM exam_schedules WHERE course_id=$1 AND semester_id=$2`
	args := []any{courseID, semesterID}
	if examType != "" {
		q += ` AND exam_type=$3`
		args = append(args, examType)
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []component
	for rows.Next() {
		var c component
		if err := rows.Scan(&c.id, &c.totalMarks, &c.weightage); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Service) registeredStudents(ctx context.Context, courseID, semesterID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT student_id FROM registrations WHERE course_id=$1 AND semester_id=$2 ORDER BY student_id`,
		courseID, semesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// gradeStudent returns nil when the student has no marks for any component.
func (s *Service) gradeStudent(ctx context.Context, studentID, courseID, semesterID string, creditHours float64, components []component) (*Grade, error) {
	var weighted, totalWeight float64
	for _, c := range components {
		if c.weightage <= 0 {
			return nil, httperr.BadRequest("component %s has non-positive weightage %.2f", c.id, c.weightage)
		}
		var obtained, total float64
		err := s.db.QueryRowContext(ctx,
			`SELECT obtained_marks, total_marks FROM marks WHERE student_id=$1 AND exam_schedule_id=$2`,
			studentID, c.id).Scan(&obtained, &total)
		if errors.Is(err, sql.ErrNoRows) {
			continue // missing component: score on what exists, not a retroactive zero
		}
		if err != nil {
			return nil, err
		}
		if total <= 0 {
			return nil, httperr.BadRequest("component %s has non-positive total marks %.2f", c.id, total)
		}
		weighted += (obtained / total) * c.weightage
		totalWeight += c.weightage
	}
	if totalWeight == 0 {
		return nil, nil
	}

	pct := weighted / totalWeight * 100 // full precision until the upsert
	band, err := s.scale.GradeForPercentage(ctx, trunc2(pct))
	if err != nil {
		return nil, err
	}
	return &Grade{
		StudentID:   studentID,
		CourseID:    courseID,
		SemesterID:  semesterID,
		Marks:       trunc2(pct),
		Grade:       band.Grade,
		GradePoints: band.GradePoint,
		CreditHours: creditHours,
	}, nil
}

func (s *Service) semesterExists(ctx context.Context, semesterID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM semesters WHERE id=$1`, semesterID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return httperr.NotFound("semester %s not found", semesterID)
	}
	return err
}
