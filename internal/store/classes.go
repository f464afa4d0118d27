package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

func (s *Store) CreateUser(ctx context.Context, name, email, role string) (User, error) {
	u := User{ID: uuid.NewString(), Name: name, Email: email, Role: role}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, name, email, role)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, u.ID, u.Name, u.Email, u.Role)
	if err := row.Scan(&u.CreatedAt); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, avatar_url, created_at
		FROM users WHERE id = $1
	`, id)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.AvatarURL, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (s *Store) SetUserAvatar(ctx context.Context, userID, avatarURL string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET avatar_url = $2 WHERE id = $1`, userID, avatarURL)
	return err
}

func (s *Store) CreateClass(ctx context.Context, name, subject, teacherID, description string) (Class, error) {
	c := Class{ID: uuid.NewString(), Name: name, Subject: subject, TeacherID: teacherID}
	var descRef any
	if description != "" {
		descRef = description
		c.Description = sql.NullString{String: description, Valid: true}
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO classes (id, name, subject, teacher_id, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, c.ID, c.Name, c.Subject, c.TeacherID, descRef)
	if err := row.Scan(&c.CreatedAt); err != nil {
		return Class{}, err
	}
	// The teacher is always a member of their own class.
	if err := s.AddClassMember(ctx, c.ID, teacherID); err != nil {
		return Class{}, err
	}
	return c, nil
}

func (s *Store) GetClass(ctx context.Context, id string) (Class, error) {
	var c Class
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, subject, teacher_id, description, created_at
		FROM classes WHERE id = $1
	`, id)
	if err := row.Scan(&c.ID, &c.Name, &c.Subject, &c.TeacherID, &c.Description, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Class{}, ErrNotFound
		}
		return Class{}, err
	}
	return c, nil
}

func (s *Store) ListClassesForUser(ctx context.Context, userID string) ([]Class, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.subject, c.teacher_id, c.description, c.created_at
		FROM classes c
		JOIN class_members m ON m.class_id = c.id
		WHERE m.user_id = $1
		ORDER BY c.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Class
	for rows.Next() {
		var c Class
		if err := rows.Scan(&c.ID, &c.Name, &c.Subject, &c.TeacherID, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) AddClassMember(ctx context.Context, classID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO class_members (class_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, classID, userID)
	return err
}

func (s *Store) ListClassMemberIDs(ctx context.Context, classID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM class_members WHERE class_id = $1
	`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) CreateNotification(ctx context.Context, userID, classID, message string) (Notification, error) {
	n := Notification{ID: uuid.NewString(), UserID: userID, ClassID: classID, Message: message}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO notifications (id, user_id, class_id, message)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, n.ID, n.UserID, n.ClassID, n.Message)
	if err := row.Scan(&n.CreatedAt); err != nil {
		return Notification{}, err
	}
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, class_id, message, read_at, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.ClassID, &n.Message, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
