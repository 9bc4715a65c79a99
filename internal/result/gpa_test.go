package result_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// SGPA for 3 credits of A (4.0) and 4 credits of C (2.0): (3*4 + 4*2)/7 = 2.86.
func TestComputeSGPA(t *testing.T) {
	f := newFixture(t)
	f.seedSemester(t)

	f.insertGrade(t, "s1", "c1", "sem1", 90, "A+", 4.0, 3)
	f.insertGrade(t, "s1", "c2", "sem1", 60, "C", 2.0, 4)

	res, err := f.svc.ComputeSGPA(context.Background(), "s1", "sem1")
	require.NoError(t, err)
	require.Equal(t, 2.86, res.SGPA)
	require.Equal(t, 7.0, res.TotalCredits)
	require.Len(t, res.Courses, 2)
}

// A student with no grades yet has SGPA 0 by definition, not an error.
func TestComputeSGPAEmpty(t *testing.T) {
	f := newFixture(t)
	f.seedSemester(t)

	res, err := f.svc.ComputeSGPA(context.Background(), "s1", "sem1")
	require.NoError(t, err)
	require.Equal(t, 0.0, res.SGPA)
	require.Empty(t, res.Courses)
}

// CGPA is one flat credit-weighted mean over all courses ever taken — not a
// mean of per-semester SGPAs, which diverges when credit loads differ.
func TestComputeCGPAIsFlatMean(t *testing.T) {
	f := newFixture(t)
	f.seedSemester(t)

	// sem1: 3 credits at 4.0 (SGPA 4.00); sem2: 4 credits at 2.0 (SGPA 2.00)
	f.insertGrade(t, "s1", "c1", "sem1", 90, "A+", 4.0, 3)
	f.insertGrade(t, "s1", "c2", "sem2", 60, "C", 2.0, 4)

	res, err := f.svc.ComputeCGPA(context.Background(), "s1")
	require.NoError(t, err)
	// flat: (3*4 + 4*2)/7 = 2.86; mean of SGPAs would be 3.00
	require.Equal(t, 2.86, res.CGPA)
	require.NotEqual(t, 3.0, res.CGPA)
	require.Equal(t, 7.0, res.TotalCredits)
	require.Equal(t, 2, res.Courses)
}

func TestCalculateGPAForSemester(t *testing.T) {
	f := newFixture(t)
	f.seedSemester(t)

	f.insertGrade(t, "s1", "c1", "sem1", 90, "A+", 4.0, 3)
	f.insertGrade(t, "s1", "c2", "sem1", 60, "C", 2.0, 4)
	f.insertGrade(t, "s2", "c1", "sem1", 55, "D", 1.0, 3)

	batch, err := f.svc.CalculateGPAForSemester(context.Background(), "sem1")
	require.NoError(t, err)
	require.Len(t, batch.Results, 2)

	require.Equal(t, "s1", batch.Results[0].StudentID)
	require.Equal(t, 2.86, batch.Results[0].SGPA)
	require.Equal(t, "pending", batch.Results[0].Status)
	require.Equal(t, 1.0, batch.Results[1].SGPA)

	require.Equal(t, 2, batch.Stats.Students)
	require.Equal(t, 1.0, batch.Stats.MinSGPA)
	require.Equal(t, 2.86, batch.Stats.MaxSGPA)
	require.Equal(t, 1.93, batch.Stats.AvgSGPA)

	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM semester_results WHERE semester_id='sem1'`).Scan(&n))
	require.Equal(t, 2, n)

	// recomputation upserts, it does not duplicate, and preserves status
	_, err = f.db.Exec(`UPDATE semester_results SET status='pass' WHERE student_id='s1' AND semester_id='sem1'`)
	require.NoError(t, err)
	batch, err = f.svc.CalculateGPAForSemester(context.Background(), "sem1")
	require.NoError(t, err)
	require.Equal(t, "pass", batch.Results[0].Status)
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM semester_results WHERE semester_id='sem1'`).Scan(&n))
	require.Equal(t, 2, n)
}
