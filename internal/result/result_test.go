package result_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusware/registrar/internal/db"
	"github.com/campusware/registrar/internal/event"
	"github.com/campusware/registrar/internal/gradescale"
	"github.com/campusware/registrar/internal/marks"
	"github.com/campusware/registrar/internal/result"
)

type fixture struct {
	db    *sql.DB
	svc   *result.Service
	marks *marks.Store
}

// newFixture wires the pipeline the way cmd/gateway does: seeded scale,
// event bus with the freeze subscriber, sqlite store.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { dbh.Close() })

	scale := gradescale.NewStore(dbh)
	require.NoError(t, scale.Seed(context.Background()))

	marksStore := marks.NewStore(dbh)
	bus := event.NewBus(dbh)
	bus.Subscribe(event.TypeSemesterFrozen, func(ctx context.Context, tx *sql.Tx, e event.Event) error {
		return marksStore.LockSemester(ctx, tx, e.Key)
	})

	return &fixture{
		db:    dbh,
		svc:   result.NewService(dbh, scale, bus, nil),
		marks: marksStore,
	}
}

func (f *fixture) exec(t *testing.T, queries ...string) {
	t.Helper()
	for _, q := range queries {
		_, err := f.db.Exec(q)
		require.NoError(t, err)
	}
}

// seedSemester creates one semester with two courses, two registered students
// and midterm/final components for each course.
func (f *fixture) seedSemester(t *testing.T) {
	t.Helper()
	f.exec(t,
		`INSERT INTO semesters (id, name, number) VALUES ('sem1','Fall 2025',1)`,
		`INSERT INTO semesters (id, name, number) VALUES ('sem2','Spring 2026',2)`,
		`INSERT INTO courses (id, code, title, credit_hours) VALUES ('c1','CS101','Programming',3)`,
		`INSERT INTO courses (id, code, title, credit_hours) VALUES ('c2','MA102','Calculus',4)`,
		`INSERT INTO students (id, roll_number, name, current_semester) VALUES ('s1','R-001','Amina',1)`,
		`INSERT INTO students (id, roll_number, name, current_semester) VALUES ('s2','R-002','Bilal',1)`,
		`INSERT INTO registrations VALUES ('s1','c1','sem1'), ('s1','c2','sem1'), ('s2','c1','sem1')`,
		`INSERT INTO exam_schedules (id, course_id, semester_id, exam_type, total_marks, weightage)
		 VALUES ('c1-mid','c1','sem1','midterm',100,30), ('c1-fin','c1','sem1','final',100,70)`,
		`INSERT INTO exam_schedules (id, course_id, semester_id, exam_type, total_marks, weightage)
		 VALUES ('c2-mid','c2','sem1','midterm',100,40), ('c2-fin','c2','sem1','final',100,60)`,
	)
}

func (f *fixture) enter(t *testing.T, studentID, scheduleID string, obtained float64) {
	t.Helper()
	_, err := f.marks.EnterMarks(context.Background(), "grader", studentID, scheduleID, obtained)
	require.NoError(t, err)
}

// insertGrade writes a derived grade row directly, for tests that exercise
// the aggregation and classification stages in isolation.
func (f *fixture) insertGrade(t *testing.T, studentID, courseID, semesterID string, pct float64, grade string, points, credits float64) {
	t.Helper()
	_, err := f.db.Exec(
		`INSERT INTO grades (student_id, course_id, semester_id, marks, grade, grade_points, credit_hours)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		studentID, courseID, semesterID, pct, grade, points, credits)
	require.NoError(t, err)
}
