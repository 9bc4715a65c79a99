package gradescale

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/campusware/registrar/internal/httperr"
)

// Entry is one band of the grading scale. Bands must be non-overlapping and
// together cover [0,100].
type Entry struct {
	MinMarks   float64 `json:"min_marks"`
	MaxMarks   float64 `json:"max_marks"`
	Grade      string  `json:"grade"`
	GradePoint float64 `json:"grade_point"`
}

// DefaultScale is the HEC-style 9-band scale seeded on first deployment.
var DefaultScale = []Entry{
	{85, 100, "A+", 4.00},
	{80, 84.99, "A", 3.66},
	{75, 79.99, "B+", 3.33},
	{70, 74.99, "B", 3.00},
	{65, 69.99, "B-", 2.66},
	{61, 64.99, "C+", 2.33},
	{58, 60.99, "C", 2.00},
	{50, 57.99, "D", 1.00},
	{0, 49.99, "F", 0.00},
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Seed inserts DefaultScale iff the table is empty. Called once from the
// deployment bootstrap; reads never seed.
func (s *Store) Seed(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM grade_scale`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return s.insertAll(ctx, DefaultScale, false)
}

// GetScale returns all bands ordered by min_marks descending.
func (s *Store) GetScale(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT min_marks, max_marks, grade, grade_point FROM grade_scale ORDER BY min_marks DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.MinMarks, &e.MaxMarks, &e.Grade, &e.GradePoint); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GradeForPercentage finds the band with min_marks <= p <= max_marks. An
// uncovered percentage is a scale configuration error, not a silent F.
func (s *Store) GradeForPercentage(ctx context.Context, p float64) (Entry, error) {
	var e Entry
	err := s.db.QueryRowContext(ctx,
		`SELECT min_marks, max_marks, grade, grade_point FROM grade_scale
		 WHERE min_marks <= $1 AND $1 <= max_marks
		 ORDER BY min_marks DESC LIMIT 1`, p).
		Scan(&e.MinMarks, &e.MaxMarks, &e.Grade, &e.GradePoint)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, httperr.Internal("grade scale has no band covering %.2f%%", p)
	}
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// ReplaceScale swaps the whole scale in one transaction.
func (s *Store) ReplaceScale(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return httperr.BadRequest("grade scale entries required")
	}
	if err := validate(entries); err != nil {
		return err
	}
	return s.insertAll(ctx, entries, true)
}

func (s *Store) insertAll(ctx context.Context, entries []Entry, deleteFirst bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if deleteFirst {
		if _, err := tx.ExecContext(ctx, `DELETE FROM grade_scale`); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO grade_scale (min_marks, max_marks, grade, grade_point)
			 VALUES ($1,$2,$3,$4)`,
			e.MinMarks, e.MaxMarks, e.Grade, e.GradePoint); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func validate(entries []Entry) error {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinMarks < sorted[j].MinMarks })

	for _, e := range sorted {
		if e.Grade == "" {
			return httperr.BadRequest("grade label required")
		}
		if e.MinMarks < 0 || e.MaxMarks > 100 || e.MinMarks > e.MaxMarks {
			return httperr.BadRequest("invalid band %s: [%.2f, %.2f]", e.Grade, e.MinMarks, e.MaxMarks)
		}
		if e.GradePoint < 0 || e.GradePoint > 4 {
			return httperr.BadRequest("invalid grade point %.2f for %s", e.GradePoint, e.Grade)
		}
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].MinMarks <= sorted[i-1].MaxMarks {
			return httperr.BadRequest("bands %s and %s overlap", sorted[i-1].Grade, sorted[i].Grade)
		}
	}
	return nil
}
