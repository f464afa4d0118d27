package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("missing database dsn")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db}, nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type User struct {
	ID        string
	Name      string
	Email     string
	Role      string
	AvatarURL sql.NullString
	CreatedAt time.Time
}

type Class struct {
	ID          string
	Name        string
	Subject     string
	TeacherID   string
	Description sql.NullString
	CreatedAt   time.Time
}

type Assignment struct {
	ID        string
	ClassID   string
	Title     string
	Content   string
	MaxMarks  int
	DueAt     time.Time
	CreatedAt time.Time
}

type Submission struct {
	ID           string
	AssignmentID string
	StudentID    string
	FileURL      string
	FileName     string
	ContentType  string
	SubmittedAt  time.Time
}

type Grade struct {
	ID           string
	SubmissionID string
	Grade        float64
	Feedback     string
	Strengths    string
	Improvements string
	GradedAt     time.Time
}

type Meeting struct {
	ID        string
	ClassID   string
	HostID    string
	StartedAt time.Time
	EndedAt   sql.NullTime
}

type Notification struct {
	ID        string
	UserID    string
	ClassID   string
	Message   string
	ReadAt    sql.NullTime
	CreatedAt time.Time
}
