package result

import (
	"context"
	"database/sql"
	"errors"

	"github.com/campusware/registrar/internal/httperr"
)

type StudentOutcome struct {
	StudentID     string  `json:"student_id"`
	SGPA          float64 `json:"sgpa"`
	CGPA          float64 `json:"cgpa"`
	FailedCourses int     `json:"failed_courses"`
	Status        string  `json:"status"`
}

// ProcessReport buckets the classification. Probation entries are stored with
// status 'pass'; the bucket is a reporting-only distinction.
type ProcessReport struct {
	SemesterID string           `json:"semester_id"`
	Passed     []StudentOutcome `json:"passed"`
	Probation  []StudentOutcome `json:"probation"`
	Failed     []StudentOutcome `json:"failed"`
	Stats      ClassStats       `json:"stats"`
}

type PromoteReport struct {
	SemesterID     string   `json:"semester_id"`
	NextSemesterID string   `json:"next_semester_id"`
	Promoted       []string `json:"promoted"`
}

// ProcessResults recomputes the semester's GPA batch, then classifies every
// student. Rules, in order:
//  1. cgpa >= passingCGPA and no failed course  -> pass
//  2. cgpa < probationCGPA or > 2 failed courses -> fail
//  3. otherwise                                  -> pass (probation bucket)
//
// Status writes are per student, not one cross-student transaction; re-running
// after a partial failure completes the remainder (upsert semantics).
func (s *Service) ProcessResults(ctx context.Context, semesterID string, passingCGPA, probationCGPA float64) (ProcessReport, error) {
	rep := ProcessReport{SemesterID: semesterID, Passed: []StudentOutcome{}, Probation: []StudentOutcome{}, Failed: []StudentOutcome{}}
	if passingCGPA < probationCGPA {
		return rep, httperr.BadRequest("passing CGPA %.2f below probation CGPA %.2f", passingCGPA, probationCGPA)
	}

	batch, err := s.CalculateGPAForSemester(ctx, semesterID)
	if err != nil {
		return rep, err
	}
	rep.Stats = batch.Stats

	for _, sr := range batch.Results {
		failed, err := s.failedCourseCount(ctx, sr.StudentID, semesterID)
		if err != nil {
			return rep, err
		}
		o := StudentOutcome{StudentID: sr.StudentID, SGPA: sr.SGPA, CGPA: sr.CGPA, FailedCourses: failed}

		probation := false
		switch {
		case sr.CGPA >= passingCGPA && failed == 0:
			o.Status = StatusPass
		case sr.CGPA < probationCGPA || failed > 2:
			o.Status = StatusFail
		default:
			o.Status = StatusPass
			probation = true
		}

		if _, err := s.db.ExecContext(ctx,
			`UPDATE semester_results SET status=$1 WHERE student_id=$2 AND semester_id=$3`,
			o.Status, sr.StudentID, semesterID); err != nil {
			return rep, err
		}

		switch {
		case o.Status == StatusFail:
			rep.Failed = append(rep.Failed, o)
		case probation:
			rep.Probation = append(rep.Probation, o)
		default:
			rep.Passed = append(rep.Passed, o)
		}
	}
	return rep, nil
}

// PromoteStudents moves every passing student of semesterID into the next
// semester and flips their result status to 'promoted'. Only status='pass'
// rows are selected, so a retry after partial promotion skips rows already
// promoted.
func (s *Service) PromoteStudents(ctx context.Context, semesterID, nextSemesterID string) (PromoteReport, error) {
	rep := PromoteReport{SemesterID: semesterID, NextSemesterID: nextSemesterID, Promoted: []string{}}
	if err := s.semesterExists(ctx, semesterID); err != nil {
		return rep, err
	}
	var nextNumber int
	err := s.db.QueryRowContext(ctx, `SELECT number FROM semesters WHERE id=$1`, nextSemesterID).Scan(&nextNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return rep, httperr.NotFound("semester %s not found", nextSemesterID)
	}
	if err != nil {
		return rep, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT student_id FROM semester_results WHERE semester_id=$1 AND status=$2 ORDER BY student_id`,
		semesterID, StatusPass)
	if err != nil {
		return rep, err
	}
	var students []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return rep, err
		}
		students = append(students, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return rep, err
	}

	for _, studentID := range students {
		if err := s.promoteOne(ctx, studentID, semesterID, nextNumber); err != nil {
			return rep, err
		}
		rep.Promoted = append(rep.Promoted, studentID)
	}
	return rep, nil
}

// promoteOne wraps the student update and the status flip in one transaction
// so a crash cannot promote a student without recording it.
func (s *Service) promoteOne(ctx context.Context, studentID, semesterID string, nextNumber int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE students SET current_semester=$1 WHERE id=$2`, nextNumber, studentID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE semester_results SET status=$1 WHERE student_id=$2 AND semester_id=$3`,
		StatusPromoted, studentID, semesterID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Service) failedCourseCount(ctx context.Context, studentID, semesterID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM grades WHERE student_id=$1 AND semester_id=$2 AND grade='F'`,
		studentID, semesterID).Scan(&n)
	return n, err
}
