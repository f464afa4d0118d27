package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

func (s *Store) CreateAssignment(ctx context.Context, classID, title, content string, maxMarks int, dueAt time.Time) (Assignment, error) {
	a := Assignment{ID: uuid.NewString(), ClassID: classID, Title: title, Content: content, MaxMarks: maxMarks, DueAt: dueAt}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO assignments (id, class_id, title, content, max_marks, due_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, a.ID, a.ClassID, a.Title, a.Content, a.MaxMarks, a.DueAt)
	if err := row.Scan(&a.CreatedAt); err != nil {
		return Assignment{}, err
	}
	return a, nil
}

func (s *Store) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	var a Assignment
	row := s.db.QueryRowContext(ctx, `
		SELECT id, class_id, title, content, max_marks, due_at, created_at
		FROM assignments WHERE id = $1
	`, id)
	if err := row.Scan(&a.ID, &a.ClassID, &a.Title, &a.Content, &a.MaxMarks, &a.DueAt, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Assignment{}, ErrNotFound
		}
		return Assignment{}, err
	}
	return a, nil
}

func (s *Store) ListAssignments(ctx context.Context, classID string) ([]Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, class_id, title, content, max_marks, due_at, created_at
		FROM assignments
		WHERE class_id = $1
		ORDER BY due_at ASC
	`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.ClassID, &a.Title, &a.Content, &a.MaxMarks, &a.DueAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CreateSubmission(ctx context.Context, assignmentID, studentID, fileURL, fileName, contentType string) (Submission, error) {
	sub := Submission{
		ID:           uuid.NewString(),
		AssignmentID: assignmentID,
		StudentID:    studentID,
		FileURL:      fileURL,
		FileName:     fileName,
		ContentType:  contentType,
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO submissions (id, assignment_id, student_id, file_url, file_name, content_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (assignment_id, student_id) DO UPDATE
			SET file_url = EXCLUDED.file_url,
			    file_name = EXCLUDED.file_name,
			    content_type = EXCLUDED.content_type,
			    submitted_at = now()
		RETURNING id, submitted_at
	`, sub.ID, sub.AssignmentID, sub.StudentID, sub.FileURL, sub.FileName, sub.ContentType)
	if err := row.Scan(&sub.ID, &sub.SubmittedAt); err != nil {
		return Submission{}, err
	}
	return sub, nil
}

func (s *Store) GetSubmission(ctx context.Context, id string) (Submission, error) {
	var sub Submission
	row := s.db.QueryRowContext(ctx, `
		SELECT id, assignment_id, student_id, file_url, file_name, content_type, submitted_at
		FROM submissions WHERE id = $1
	`, id)
	if err := row.Scan(&sub.ID, &sub.AssignmentID, &sub.StudentID, &sub.FileURL, &sub.FileName, &sub.ContentType, &sub.SubmittedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, ErrNotFound
		}
		return Submission{}, err
	}
	return sub, nil
}

func (s *Store) ListSubmissions(ctx context.Context, assignmentID string) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, assignment_id, student_id, file_url, file_name, content_type, submitted_at
		FROM submissions
		WHERE assignment_id = $1
		ORDER BY submitted_at DESC
	`, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var sub Submission
		if err := rows.Scan(&sub.ID, &sub.AssignmentID, &sub.StudentID, &sub.FileURL, &sub.FileName, &sub.ContentType, &sub.SubmittedAt); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *Store) UpsertGrade(ctx context.Context, submissionID string, grade float64, feedback, strengths, improvements string) (Grade, error) {
	g := Grade{
		ID:           uuid.NewString(),
		SubmissionID: submissionID,
		Grade:        grade,
		Feedback:     feedback,
		Strengths:    strengths,
		Improvements: improvements,
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO grades (id, submission_id, grade, feedback, strengths, improvements)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (submission_id) DO UPDATE
			SET grade = EXCLUDED.grade,
			    feedback = EXCLUDED.feedback,
			    strengths = EXCLUDED.strengths,
			    improvements = EXCLUDED.improvements,
			    graded_at = now()
		RETURNING id, graded_at
	`, g.ID, g.SubmissionID, g.Grade, g.Feedback, g.Strengths, g.Improvements)
	if err := row.Scan(&g.ID, &g.GradedAt); err != nil {
		return Grade{}, err
	}
	return g, nil
}

func (s *Store) ListGradesForAssignment(ctx context.Context, assignmentID string) ([]Grade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.submission_id, g.grade, g.feedback, g.strengths, g.improvements, g.graded_at
		FROM grades g
		JOIN submissions sub ON sub.id = g.submission_id
		WHERE sub.assignment_id = $1
		ORDER BY g.graded_at DESC
	`, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Grade
	for rows.Next() {
		var g Grade
		if err := rows.Scan(&g.ID, &g.SubmissionID, &g.Grade, &g.Feedback, &g.Strengths, &g.Improvements, &g.GradedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
