package result

import (
	"context"
	"database/sql"
	"errors"

	"github.com/campusware/registrar/internal/httperr"
)

type TranscriptCourse struct {
	CourseID    string  `json:"course_id"`
	Code        string  `json:"code"`
	Title       string  `json:"title"`
	Marks       float64 `json:"marks"`
	Grade       string  `json:"grade"`
	GradePoints float64 `json:"grade_points"`
	CreditHours float64 `json:"credit_hours"`
}

type TranscriptSemester struct {
	SemesterID   string             `json:"semester_id"`
	Name         string             `json:"name"`
	Number       int                `json:"number"`
	Published    bool               `json:"published"`
	SGPA         float64            `json:"sgpa"`
	TotalCredits float64            `json:"total_credits"`
	Courses      []TranscriptCourse `json:"courses"`
}

// Transcript is plain data for the export layer; the core never formats.
type Transcript struct {
	StudentID    string               `json:"student_id"`
	RollNumber   string               `json:"roll_number"`
	Name         string               `json:"name"`
	Semesters    []TranscriptSemester `json:"semesters"`
	CGPA         float64              `json:"cgpa"`
	TotalCredits float64              `json:"total_credits"`
}

// Transcript assembles the student's full academic record ordered by semester
// number. publishedOnly drops semesters whose results are not yet published
// (the student-facing view).
func (s *Service) Transcript(ctx context.Context, studentID string, publishedOnly bool) (Transcript, error) {
	var t Transcript
	err := s.db.QueryRowContext(ctx,
		`SELECT id, roll_number, name FROM students WHERE id=$1`, studentID).
		Scan(&t.StudentID, &t.RollNumber, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return Transcript{}, httperr.NotFound("student %s not found", studentID)
	}
	if err != nil {
		return Transcript{}, err
	}
	t.Semesters = []TranscriptSemester{}

	rows, err := s.db.QueryContext(ctx,
		`SELECT g.semester_id, s.name, s.number, s.results_published,
		        g.course_id, c.code, c.title, g.marks, g.grade, g.grade_points, g.credit_hours
		 FROM grades g
		 JOIN semesters s ON s.id = g.semester_id
		 JOIN courses c ON c.id = g.course_id
		 WHERE g.student_id=$1
		 ORDER BY s.number, c.code`, studentID)
	if err != nil {
		return Transcript{}, err
	}
	defer rows.Close()

	var cur *TranscriptSemester
	var points float64
	for rows.Next() {
		var semID, semName string
		var semNumber int
		var published bool
		var tc TranscriptCourse
		if err := rows.Scan(&semID, &semName, &semNumber, &published,
			&tc.CourseID, &tc.Code, &tc.Title, &tc.Marks, &tc.Grade, &tc.GradePoints, &tc.CreditHours); err != nil {
			return Transcript{}, err
		}
		if publishedOnly && !published {
			continue
		}
		if cur == nil || cur.SemesterID != semID {
			t.Semesters = append(t.Semesters, TranscriptSemester{
				SemesterID: semID, Name: semName, Number: semNumber, Published: published,
				Courses: []TranscriptCourse{},
			})
			cur = &t.Semesters[len(t.Semesters)-1]
		}
		cur.Courses = append(cur.Courses, tc)
		cur.TotalCredits += tc.CreditHours
		points += tc.GradePoints * tc.CreditHours
		t.TotalCredits += tc.CreditHours
	}
	if err := rows.Err(); err != nil {
		return Transcript{}, err
	}

	// per-semester SGPA from the rows just grouped
	for i := range t.Semesters {
		sem := &t.Semesters[i]
		var semPoints float64
		for _, c := range sem.Courses {
			semPoints += c.GradePoints * c.CreditHours
		}
		if sem.TotalCredits > 0 {
			sem.SGPA = round2(semPoints / sem.TotalCredits)
		}
	}
	if t.TotalCredits > 0 {
		t.CGPA = round2(points / t.TotalCredits)
	}
	return t, nil
}
