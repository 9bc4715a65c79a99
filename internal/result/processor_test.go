package result_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusware/registrar/internal/httperr"
	"github.com/campusware/registrar/internal/result"
)

func seedClassification(t *testing.T, f *fixture) {
	f.seedSemester(t)
	f.exec(t,
		`INSERT INTO students (id, roll_number, name, current_semester) VALUES ('s3','R-003','Chanda',1)`,
		`INSERT INTO students (id, roll_number, name, current_semester) VALUES ('s4','R-004','Daud',1)`,
		`INSERT INTO courses (id, code, title, credit_hours) VALUES ('c3','PH103','Physics',3)`,
		`INSERT INTO courses (id, code, title, credit_hours) VALUES ('c4','EN104','English',1)`,
		`INSERT INTO courses (id, code, title, credit_hours) VALUES ('c5','ST105','Statistics',1)`,
		`INSERT INTO courses (id, code, title, credit_hours) VALUES ('c6','EC106','Economics',1)`,
		`INSERT INTO courses (id, code, title, credit_hours) VALUES ('c7','HU107','Humanities',30)`,
	)
}

func TestProcessResultsClassification(t *testing.T) {
	f := newFixture(t)
	seedClassification(t, f)
	ctx := context.Background()

	// s1: cgpa exactly at the probation threshold, no F -> pass, probation bucket
	f.insertGrade(t, "s1", "c1", "sem1", 55, "D", 1.5, 3)
	// s2: one hundredth below the probation threshold -> fail
	f.insertGrade(t, "s2", "c1", "sem1", 54, "D", 1.49, 3)
	// s3: clean pass
	f.insertGrade(t, "s3", "c1", "sem1", 80, "A", 3.0, 3)
	// s4: high CGPA but three failed courses -> fail
	f.insertGrade(t, "s4", "c4", "sem1", 20, "F", 0, 1)
	f.insertGrade(t, "s4", "c5", "sem1", 25, "F", 0, 1)
	f.insertGrade(t, "s4", "c6", "sem1", 30, "F", 0, 1)
	f.insertGrade(t, "s4", "c7", "sem1", 95, "A+", 4.0, 30)

	rep, err := f.svc.ProcessResults(ctx, "sem1", 2.0, 1.5)
	require.NoError(t, err)

	require.Len(t, rep.Passed, 1)
	require.Equal(t, "s3", rep.Passed[0].StudentID)

	require.Len(t, rep.Probation, 1)
	require.Equal(t, "s1", rep.Probation[0].StudentID)
	require.Equal(t, result.StatusPass, rep.Probation[0].Status)

	require.Len(t, rep.Failed, 2)
	require.Equal(t, "s2", rep.Failed[0].StudentID)
	require.Equal(t, "s4", rep.Failed[1].StudentID)
	require.Equal(t, 3, rep.Failed[1].FailedCourses)

	// probation is reporting-only: the stored status is 'pass'
	var status string
	require.NoError(t, f.db.QueryRow(
		`SELECT status FROM semester_results WHERE student_id='s1' AND semester_id='sem1'`).Scan(&status))
	require.Equal(t, result.StatusPass, status)

	require.NoError(t, f.db.QueryRow(
		`SELECT status FROM semester_results WHERE student_id='s2' AND semester_id='sem1'`).Scan(&status))
	require.Equal(t, result.StatusFail, status)
}

// A passing CGPA with any failed course drops to the probation branch, not a
// clean pass.
func TestProcessResultsFailedCourseBlocksCleanPass(t *testing.T) {
	f := newFixture(t)
	seedClassification(t, f)

	f.insertGrade(t, "s1", "c1", "sem1", 30, "F", 0, 1)
	f.insertGrade(t, "s1", "c7", "sem1", 95, "A+", 4.0, 30)

	rep, err := f.svc.ProcessResults(context.Background(), "sem1", 2.0, 1.5)
	require.NoError(t, err)
	require.Empty(t, rep.Passed)
	require.Len(t, rep.Probation, 1)
	require.Equal(t, 1, rep.Probation[0].FailedCourses)
}

func TestProcessResultsThresholdOrderValidated(t *testing.T) {
	f := newFixture(t)
	f.seedSemester(t)

	_, err := f.svc.ProcessResults(context.Background(), "sem1", 1.0, 2.0)
	require.Equal(t, http.StatusBadRequest, httperr.StatusOf(err))
}

func TestPromoteStudents(t *testing.T) {
	f := newFixture(t)
	seedClassification(t, f)
	ctx := context.Background()

	f.insertGrade(t, "s1", "c1", "sem1", 80, "A", 3.0, 3)
	f.insertGrade(t, "s2", "c1", "sem1", 40, "F", 0, 3)

	_, err := f.svc.ProcessResults(ctx, "sem1", 2.0, 1.5)
	require.NoError(t, err)

	rep, err := f.svc.PromoteStudents(ctx, "sem1", "sem2")
	require.NoError(t, err)
	require.Equal(t, []string{"s1"}, rep.Promoted)

	var cur int
	require.NoError(t, f.db.QueryRow(`SELECT current_semester FROM students WHERE id='s1'`).Scan(&cur))
	require.Equal(t, 2, cur)
	require.NoError(t, f.db.QueryRow(`SELECT current_semester FROM students WHERE id='s2'`).Scan(&cur))
	require.Equal(t, 1, cur)

	var status string
	require.NoError(t, f.db.QueryRow(
		`SELECT status FROM semester_results WHERE student_id='s1' AND semester_id='sem1'`).Scan(&status))
	require.Equal(t, result.StatusPromoted, status)

	// re-running selects only status='pass': already-promoted rows are skipped
	rep, err = f.svc.PromoteStudents(ctx, "sem1", "sem2")
	require.NoError(t, err)
	require.Empty(t, rep.Promoted)

	_, err = f.svc.PromoteStudents(ctx, "sem1", "missing")
	require.Equal(t, http.StatusNotFound, httperr.StatusOf(err))
}
