package marks

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
)

// BulkRow references a student by id or roll number; id wins when both are
// set.
type BulkRow struct {
	StudentID     string  `json:"student_id,omitempty"`
	RollNumber    string  `json:"roll_number,omitempty"`
	ObtainedMarks float64 `json:"obtained_marks"`
}

type BulkFailure struct {
	Row    int    `json:"row"`
	Ref    string `json:"ref"` // student id or roll number as given
	Reason string `json:"reason"`
}

type BulkReport struct {
	Success []Mark        `json:"success"`
	Failed  []BulkFailure `json:"failed"`
}

// BulkUpload enters marks row by row, best-effort: a bad row is reported in
// Failed and must not block the rest of the batch.
func (s *Store) BulkUpload(ctx context.Context, gradedBy, scheduleID string, rows []BulkRow) BulkReport {
	rep := BulkReport{Success: []Mark{}, Failed: []BulkFailure{}}
	for i, row := range rows {
		ref := row.StudentID
		if ref == "" {
			ref = row.RollNumber
		}
		studentID, err := s.resolveStudent(ctx, row)
		if err != nil {
			rep.Failed = append(rep.Failed, BulkFailure{Row: i, Ref: ref, Reason: err.Error()})
			continue
		}
		m, err := s.EnterMarks(ctx, gradedBy, studentID, scheduleID, row.ObtainedMarks)
		if err != nil {
			rep.Failed = append(rep.Failed, BulkFailure{Row: i, Ref: ref, Reason: err.Error()})
			continue
		}
		rep.Success = append(rep.Success, m)
	}
	return rep
}

func (s *Store) resolveStudent(ctx context.Context, row BulkRow) (string, error) {
	if row.StudentID != "" {
		err := s.studentExists(ctx, row.StudentID)
		if err == nil {
			return row.StudentID, nil
		}
		if row.RollNumber == "" {
			return "", err
		}
		// fall through to roll-number lookup (CSV rows carry one ref column)
	}
	if row.RollNumber == "" {
		return "", errors.New("student_id or roll_number required")
	}
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM students WHERE roll_number=$1`, row.RollNumber).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.New("no student with roll number " + row.RollNumber)
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// ParseCSV reads rows of "student_ref,obtained_marks". The ref column matches
// student id first, roll number second. A header line is skipped when the
// marks column is not numeric.
func ParseCSV(r io.Reader) ([]BulkRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	var out []BulkRow
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 2 {
			continue
		}
		ref := strings.TrimSpace(rec[0])
		obtained, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			if first {
				first = false
				continue // header
			}
			return nil, err
		}
		first = false
		out = append(out, BulkRow{StudentID: ref, RollNumber: ref, ObtainedMarks: obtained})
	}
	return out, nil
}
