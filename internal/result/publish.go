package result

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/campusware/registrar/internal/event"
	"github.com/campusware/registrar/internal/httperr"
)

type Semester struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Number             int    `json:"number"`
	ResultsPublished   bool   `json:"results_published"`
	ResultsPublishedAt int64  `json:"results_published_at,omitempty"`
	ResultsFrozen      bool   `json:"results_frozen"`
	ResultsFrozenAt    int64  `json:"results_frozen_at,omitempty"`
}

func (s *Service) GetSemester(ctx context.Context, id string) (Semester, error) {
	var sem Semester
	var pubAt, frzAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, number, results_published, results_published_at, results_frozen, results_frozen_at
		 FROM semesters WHERE id=$1`, id).
		Scan(&sem.ID, &sem.Name, &sem.Number, &sem.ResultsPublished, &pubAt, &sem.ResultsFrozen, &frzAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Semester{}, httperr.NotFound("semester %s not found", id)
	}
	if err != nil {
		return Semester{}, err
	}
	sem.ResultsPublishedAt = pubAt.Int64
	sem.ResultsFrozenAt = frzAt.Int64
	return sem, nil
}

// PublishResults makes the semester's results visible to students. Processing
// must have run first: at least one result row must be past 'pending'.
// Publishing does not lock marks.
func (s *Service) PublishResults(ctx context.Context, semesterID string) (Semester, error) {
	if err := s.semesterExists(ctx, semesterID); err != nil {
		return Semester{}, err
	}
	var processed int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM semester_results WHERE semester_id=$1 AND status != $2`,
		semesterID, StatusPending).Scan(&processed); err != nil {
		return Semester{}, err
	}
	if processed == 0 {
		return Semester{}, httperr.BadRequest("results for semester %s have not been processed", semesterID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Semester{}, err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	if _, err := tx.ExecContext(ctx,
		`UPDATE semesters SET results_published=$1, results_published_at=$2 WHERE id=$3`,
		true, now, semesterID); err != nil {
		return Semester{}, err
	}
	if err := s.bus.Publish(ctx, tx, event.Event{
		Type: event.TypeResultsPublished,
		Key:  semesterID,
		Data: map[string]any{"semester_id": semesterID, "students": processed},
	}); err != nil {
		return Semester{}, err
	}
	if err := tx.Commit(); err != nil {
		return Semester{}, err
	}

	s.notifier.ResultsPublished(ctx, semesterID, processed)
	return s.GetSemester(ctx, semesterID)
}

// FreezeResults locks every exam schedule under the semester and flags the
// semester frozen, atomically. The cascading lock runs through the
// SemesterFrozen event subscriber inside this transaction.
func (s *Service) FreezeResults(ctx context.Context, semesterID string) (Semester, error) {
	if err := s.semesterExists(ctx, semesterID); err != nil {
		return Semester{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Semester{}, err
	}
	defer tx.Rollback()

	if err := s.bus.Publish(ctx, tx, event.Event{
		Type: event.TypeSemesterFrozen,
		Key:  semesterID,
		Data: map[string]any{"semester_id": semesterID},
	}); err != nil {
		return Semester{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE semesters SET results_frozen=$1, results_frozen_at=$2 WHERE id=$3`,
		true, time.Now().Unix(), semesterID); err != nil {
		return Semester{}, err
	}
	if err := tx.Commit(); err != nil {
		return Semester{}, err
	}
	return s.GetSemester(ctx, semesterID)
}
