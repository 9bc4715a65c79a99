package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:registrar.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/registrar?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  role TEXT NOT NULL,                        -- student|faculty|admin
  pass_hash TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS students (
  id TEXT PRIMARY KEY,
  roll_number TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  current_semester INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS courses (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  credit_hours REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS semesters (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  number INTEGER NOT NULL,
  results_published BOOLEAN NOT NULL DEFAULT 0,
  results_published_at BIGINT,
  results_frozen BOOLEAN NOT NULL DEFAULT 0,
  results_frozen_at BIGINT
);

CREATE TABLE IF NOT EXISTS registrations (
  student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  semester_id TEXT NOT NULL REFERENCES semesters(id) ON DELETE CASCADE,
  PRIMARY KEY (student_id, course_id, semester_id)
);

CREATE TABLE IF NOT EXISTS grade_scale (
  min_marks REAL NOT NULL,
  max_marks REAL NOT NULL,
  grade TEXT NOT NULL,
  grade_point REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS exam_schedules (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  semester_id TEXT NOT NULL REFERENCES semesters(id) ON DELETE CASCADE,
  exam_type TEXT NOT NULL,                   -- midterm|final|quiz|...
  total_marks REAL NOT NULL,
  weightage REAL NOT NULL,                   -- percent of course grade
  marks_locked BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS marks (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
  exam_schedule_id TEXT NOT NULL REFERENCES exam_schedules(id) ON DELETE CASCADE,
  obtained_marks REAL NOT NULL,
  total_marks REAL NOT NULL,
  entered_by TEXT NOT NULL,
  entry_date BIGINT NOT NULL,
  UNIQUE (student_id, exam_schedule_id)
);

CREATE TABLE IF NOT EXISTS grades (
  student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  semester_id TEXT NOT NULL REFERENCES semesters(id) ON DELETE CASCADE,
  marks REAL NOT NULL,                       -- final weighted percentage
  grade TEXT NOT NULL,
  grade_points REAL NOT NULL,
  credit_hours REAL NOT NULL,
  PRIMARY KEY (student_id, course_id, semester_id)
);

CREATE TABLE IF NOT EXISTS semester_results (
  student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
  semester_id TEXT NOT NULL REFERENCES semesters(id) ON DELETE CASCADE,
  sgpa REAL NOT NULL DEFAULT 0,
  cgpa REAL NOT NULL DEFAULT 0,
  total_credits REAL NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'pending',    -- pending|pass|fail|promoted
  PRIMARY KEY (student_id, semester_id)
);

CREATE TABLE IF NOT EXISTS event_log (
  offset INTEGER PRIMARY KEY AUTOINCREMENT, -- BIGSERIAL in Postgres
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,                         -- e.g., SemesterFrozen
  key TEXT NOT NULL,                         -- natural key: semesterID
  data TEXT NOT NULL,                        -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  role TEXT NOT NULL,
  pass_hash TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS students (
  id TEXT PRIMARY KEY,
  roll_number TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  current_semester INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS courses (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  credit_hours DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS semesters (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  number INTEGER NOT NULL,
  results_published BOOLEAN NOT NULL DEFAULT FALSE,
  results_published_at BIGINT,
  results_frozen BOOLEAN NOT NULL DEFAULT FALSE,
  results_frozen_at BIGINT
);

CREATE TABLE IF NOT EXISTS registrations (
  student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  semester_id TEXT NOT NULL REFERENCES semesters(id) ON DELETE CASCADE,
  PRIMARY KEY (student_id, course_id, semester_id)
);

CREATE TABLE IF NOT EXISTS grade_scale (
  min_marks DOUBLE PRECISION NOT NULL,
  max_marks DOUBLE PRECISION NOT NULL,
  grade TEXT NOT NULL,
  grade_point DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS exam_schedules (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  semester_id TEXT NOT NULL REFERENCES semesters(id) ON DELETE CASCADE,
  exam_type TEXT NOT NULL,
  total_marks DOUBLE PRECISION NOT NULL,
  weightage DOUBLE PRECISION NOT NULL,
  marks_locked BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS marks (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
  exam_schedule_id TEXT NOT NULL REFERENCES exam_schedules(id) ON DELETE CASCADE,
  obtained_marks DOUBLE PRECISION NOT NULL,
  total_marks DOUBLE PRECISION NOT NULL,
  entered_by TEXT NOT NULL,
  entry_date BIGINT NOT NULL,
  UNIQUE (student_id, exam_schedule_id)
);

CREATE TABLE IF NOT EXISTS grades (
  student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  semester_id TEXT NOT NULL REFERENCES semesters(id) ON DELETE CASCADE,
  marks DOUBLE PRECISION NOT NULL,
  grade TEXT NOT NULL,
  grade_points DOUBLE PRECISION NOT NULL,
  credit_hours DOUBLE PRECISION NOT NULL,
  PRIMARY KEY (student_id, course_id, semester_id)
);

CREATE TABLE IF NOT EXISTS semester_results (
  student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
  semester_id TEXT NOT NULL REFERENCES semesters(id) ON DELETE CASCADE,
  sgpa DOUBLE PRECISION NOT NULL DEFAULT 0,
  cgpa DOUBLE PRECISION NOT NULL DEFAULT 0,
  total_credits DOUBLE PRECISION NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'pending',
  PRIMARY KEY (student_id, semester_id)
);

CREATE TABLE IF NOT EXISTS event_log (
  offset BIGSERIAL PRIMARY KEY,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
