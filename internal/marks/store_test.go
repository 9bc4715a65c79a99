package marks_test

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusware/registrar/internal/db"
	"github.com/campusware/registrar/internal/httperr"
	"github.com/campusware/registrar/internal/marks"
)

func openDB(t *testing.T) (*sql.DB, *marks.Store) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { dbh.Close() })
	return dbh, marks.NewStore(dbh)
}

func seedFixture(t *testing.T, dbh *sql.DB) {
	t.Helper()
	for _, q := range []string{
		`INSERT INTO semesters (id, name, number) VALUES ('sem1','Fall 2025',1)`,
		`INSERT INTO courses (id, code, title, credit_hours) VALUES ('c1','CS101','Programming',3)`,
		`INSERT INTO students (id, roll_number, name) VALUES ('s1','R-001','Amina')`,
		`INSERT INTO students (id, roll_number, name) VALUES ('s2','R-002','Bilal')`,
		`INSERT INTO exam_schedules (id, course_id, semester_id, exam_type, total_marks, weightage)
		 VALUES ('es1','c1','sem1','midterm',100,30)`,
		`INSERT INTO exam_schedules (id, course_id, semester_id, exam_type, total_marks, weightage)
		 VALUES ('es2','c1','sem1','final',50,70)`,
	} {
		_, err := dbh.Exec(q)
		require.NoError(t, err)
	}
}

func TestEnterMarksUpserts(t *testing.T) {
	dbh, store := openDB(t)
	seedFixture(t, dbh)
	ctx := context.Background()

	m1, err := store.EnterMarks(ctx, "grader", "s1", "es1", 72)
	require.NoError(t, err)
	require.Equal(t, 72.0, m1.ObtainedMarks)
	require.Equal(t, "grader", m1.EnteredBy)

	m2, err := store.EnterMarks(ctx, "grader2", "s1", "es1", 85)
	require.NoError(t, err)
	require.Equal(t, 85.0, m2.ObtainedMarks)
	require.Equal(t, "grader2", m2.EnteredBy)

	var n int
	require.NoError(t, dbh.QueryRow(`SELECT COUNT(*) FROM marks WHERE student_id='s1' AND exam_schedule_id='es1'`).Scan(&n))
	require.Equal(t, 1, n)
}

func TestEnterMarksValidation(t *testing.T) {
	dbh, store := openDB(t)
	seedFixture(t, dbh)
	ctx := context.Background()

	_, err := store.EnterMarks(ctx, "g", "s1", "es1", -1)
	require.Equal(t, http.StatusBadRequest, httperr.StatusOf(err))

	_, err = store.EnterMarks(ctx, "g", "s1", "es1", 101)
	require.Equal(t, http.StatusBadRequest, httperr.StatusOf(err))

	// es2 is out of 50; 80 is a valid percentage but exceeds the component total
	_, err = store.EnterMarks(ctx, "g", "s1", "es2", 80)
	require.Equal(t, http.StatusBadRequest, httperr.StatusOf(err))

	_, err = store.EnterMarks(ctx, "g", "missing", "es1", 50)
	require.Equal(t, http.StatusNotFound, httperr.StatusOf(err))

	_, err = store.EnterMarks(ctx, "g", "s1", "missing", 50)
	require.Equal(t, http.StatusNotFound, httperr.StatusOf(err))
}

func TestLockGatesEdits(t *testing.T) {
	dbh, store := openDB(t)
	seedFixture(t, dbh)
	ctx := context.Background()

	m, err := store.EnterMarks(ctx, "g", "s1", "es1", 60)
	require.NoError(t, err)

	require.NoError(t, store.Lock(ctx, "es1", true))

	_, err = store.EnterMarks(ctx, "g", "s2", "es1", 70)
	require.Equal(t, http.StatusForbidden, httperr.StatusOf(err))

	_, err = store.EditMarks(ctx, "g", m.ID, 65)
	require.Equal(t, http.StatusForbidden, httperr.StatusOf(err))

	// admin override restores write access
	require.NoError(t, store.Lock(ctx, "es1", false))
	_, err = store.EditMarks(ctx, "g", m.ID, 65)
	require.NoError(t, err)

	require.Equal(t, http.StatusNotFound, httperr.StatusOf(store.Lock(ctx, "missing", true)))
}

func TestEditMarksNotFound(t *testing.T) {
	dbh, store := openDB(t)
	seedFixture(t, dbh)

	_, err := store.EditMarks(context.Background(), "g", "nope", 50)
	require.Equal(t, http.StatusNotFound, httperr.StatusOf(err))
}

func TestBulkUploadPartialFailure(t *testing.T) {
	dbh, store := openDB(t)
	seedFixture(t, dbh)
	ctx := context.Background()

	rep := store.BulkUpload(ctx, "g", "es1", []marks.BulkRow{
		{StudentID: "s1", ObtainedMarks: 80},
		{RollNumber: "R-002", ObtainedMarks: 66},
		{RollNumber: "R-404", ObtainedMarks: 50}, // unknown student
		{StudentID: "s2", ObtainedMarks: 250},    // out of range
	})
	require.Len(t, rep.Success, 2)
	require.Len(t, rep.Failed, 2)
	require.Equal(t, 2, rep.Failed[0].Row)
	require.Equal(t, 3, rep.Failed[1].Row)

	// the good rows are committed despite the bad ones
	var n int
	require.NoError(t, dbh.QueryRow(`SELECT COUNT(*) FROM marks WHERE exam_schedule_id='es1'`).Scan(&n))
	require.Equal(t, 2, n)
}

func TestParseCSV(t *testing.T) {
	rows, err := marks.ParseCSV(strings.NewReader("student,marks\nR-001,72.5\ns2,80\n"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "R-001", rows[0].RollNumber)
	require.Equal(t, 72.5, rows[0].ObtainedMarks)

	// no header variant
	rows, err = marks.ParseCSV(strings.NewReader("R-001,40\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
