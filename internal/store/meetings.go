package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

var ErrMeetingActive = errors.New("a meeting is already in progress for this class")

func (s *Store) StartMeeting(ctx context.Context, classID, hostID string) (Meeting, error) {
	m := Meeting{ID: uuid.NewString(), ClassID: classID, HostID: hostID}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO meetings (id, class_id, host_id)
		VALUES ($1, $2, $3)
		RETURNING started_at
	`, m.ID, m.ClassID, m.HostID)
	if err := row.Scan(&m.StartedAt); err != nil {
		// The partial unique index allows one un-ended meeting per class.
		if isUniqueViolation(err) {
			return Meeting{}, ErrMeetingActive
		}
		return Meeting{}, err
	}
	return m, nil
}

func (s *Store) ActiveMeeting(ctx context.Context, classID string) (Meeting, error) {
	var m Meeting
	row := s.db.QueryRowContext(ctx, `
		SELECT id, class_id, host_id, started_at, ended_at
		FROM meetings
		WHERE class_id = $1 AND ended_at IS NULL
	`, classID)
	if err := row.Scan(&m.ID, &m.ClassID, &m.HostID, &m.StartedAt, &m.EndedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Meeting{}, ErrNotFound
		}
		return Meeting{}, err
	}
	return m, nil
}

func (s *Store) EndMeeting(ctx context.Context, meetingID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE meetings SET ended_at = now()
		WHERE id = $1 AND ended_at IS NULL
	`, meetingID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	type coder interface{ SQLState() string }
	var c coder
	if errors.As(err, &c) {
		return c.SQLState() == "23505"
	}
	return false
}
