package result

import (
	"context"
)

type GPAResult struct {
	StudentID    string  `json:"student_id"`
	SemesterID   string  `json:"semester_id,omitempty"`
	SGPA         float64 `json:"sgpa"`
	TotalCredits float64 `json:"total_credits"`
	Courses      []Grade `json:"courses"`
}

type CGPAResult struct {
	StudentID    string  `json:"student_id"`
	CGPA         float64 `json:"cgpa"`
	TotalCredits float64 `json:"total_credits"`
	Courses      int     `json:"courses"`
}

type ClassStats struct {
	Students int     `json:"students"`
	MinSGPA  float64 `json:"min_sgpa"`
	MaxSGPA  float64 `json:"max_sgpa"`
	AvgSGPA  float64 `json:"avg_sgpa"`
}

type BatchGPAResult struct {
	SemesterID string           `json:"semester_id"`
	Results    []SemesterResult `json:"results"`
	Stats      ClassStats       `json:"stats"`
}

// ComputeSGPA is the credit-weighted mean of grade points over one semester's
// grade rows. A student with no grades yet has SGPA 0 by definition.
func (s *Service) ComputeSGPA(ctx context.Context, studentID, semesterID string) (GPAResult, error) {
	grades, err := s.gradesFor(ctx, studentID, semesterID)
	if err != nil {
		return GPAResult{}, err
	}
	out := GPAResult{StudentID: studentID, SemesterID: semesterID, Courses: grades}
	if len(grades) == 0 {
		out.Courses = []Grade{}
		return out, nil
	}
	var points, credits float64
	for _, g := range grades {
		points += g.GradePoints * g.CreditHours
		credits += g.CreditHours
	}
	out.SGPA = round2(points / credits)
	out.TotalCredits = credits
	return out, nil
}

// ComputeCGPA is a single flat credit-weighted mean over every grade row the
// student has, across all semesters. It is NOT a mean of SGPAs: points and
// credits are summed first and divided once, so semesters with different
// credit loads weigh correctly.
func (s *Service) ComputeCGPA(ctx context.Context, studentID string) (CGPAResult, error) {
	grades, err := s.gradesFor(ctx, studentID, "")
	if err != nil {
		return CGPAResult{}, err
	}
	out := CGPAResult{StudentID: studentID, Courses: len(grades)}
	if len(grades) == 0 {
		return out, nil
	}
	var points, credits float64
	for _, g := range grades {
		points += g.GradePoints * g.CreditHours
		credits += g.CreditHours
	}
	out.CGPA = round2(points / credits)
	out.TotalCredits = credits
	return out, nil
}

// CalculateGPAForSemester upserts a SemesterResult for every student with at
// least one grade in the semester, in one transaction, and returns the rows
// plus class statistics. Existing statuses are preserved.
func (s *Service) CalculateGPAForSemester(ctx context.Context, semesterID string) (BatchGPAResult, error) {
	out := BatchGPAResult{SemesterID: semesterID, Results: []SemesterResult{}}
	if err := s.semesterExists(ctx, semesterID); err != nil {
		return out, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT student_id FROM grades WHERE semester_id=$1 ORDER BY student_id`, semesterID)
	if err != nil {
		return out, err
	}
	var students []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return out, err
		}
		students = append(students, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return out, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return out, err
	}
	defer tx.Rollback()

	for _, studentID := range students {
		sgpa, err := s.ComputeSGPA(ctx, studentID, semesterID)
		if err != nil {
			return out, err
		}
		cgpa, err := s.ComputeCGPA(ctx, studentID)
		if err != nil {
			return out, err
		}
		sr := SemesterResult{
			StudentID:    studentID,
			SemesterID:   semesterID,
			SGPA:         sgpa.SGPA,
			CGPA:         cgpa.CGPA,
			TotalCredits: sgpa.TotalCredits,
			Status:       StatusPending,
		}
		var status string
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO semester_results (student_id, semester_id, sgpa, cgpa, total_credits)
			 VALUES ($1,$2,$3,$4,$5)
			 ON CONFLICT (student_id, semester_id) DO UPDATE SET
			   sgpa=EXCLUDED.sgpa,
			   cgpa=EXCLUDED.cgpa,
			   total_credits=EXCLUDED.total_credits
			 RETURNING status`,
			sr.StudentID, sr.SemesterID, sr.SGPA, sr.CGPA, sr.TotalCredits).Scan(&status); err != nil {
			return out, err
		}
		sr.Status = status
		out.Results = append(out.Results, sr)
	}
	if err := tx.Commit(); err != nil {
		return out, err
	}

	out.Stats = classStats(out.Results)
	return out, nil
}

func classStats(results []SemesterResult) ClassStats {
	st := ClassStats{Students: len(results)}
	if len(results) == 0 {
		return st
	}
	st.MinSGPA = results[0].SGPA
	st.MaxSGPA = results[0].SGPA
	var sum float64
	for _, r := range results {
		if r.SGPA < st.MinSGPA {
			st.MinSGPA = r.SGPA
		}
		if r.SGPA > st.MaxSGPA {
			st.MaxSGPA = r.SGPA
		}
		sum += r.SGPA
	}
	st.AvgSGPA = round2(sum / float64(len(results)))
	return st
}

// gradesFor returns a student's grade rows, optionally scoped to a semester.
func (s *Service) gradesFor(ctx context.Context, studentID, semesterID string) ([]Grade, error) {
	q := `SELECT student_id, course_id, semester_id, marks, grade, grade_points, credit_hours
	      FROM grades WHERE student_id=$1`
	args := []any{studentID}
	if semesterID != "" {
		q += ` AND semester_id=$2`
		args = append(args, semesterID)
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY course_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Grade
	for rows.Next() {
		var g Grade
		if err := rows.Scan(&g.StudentID, &g.CourseID, &g.SemesterID, &g.Marks, &g.Grade, &g.GradePoints, &g.CreditHours); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
