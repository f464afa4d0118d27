package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"intelliclass/internal/auth"
	"intelliclass/internal/files"
)

func (h *Handler) handleCreateClass(w http.ResponseWriter, r *http.Request, principal auth.Principal) {
	var req struct {
		Name        string `json:"name"`
		Subject     string `json:"subject"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	class, err := h.Store.CreateClass(r.Context(), req.Name, req.Subject, principal.UserID, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, class)
}

func (h *Handler) handleListClasses(w http.ResponseWriter, r *http.Request, principal auth.Principal) {
	classes, err := h.Store.ListClassesForUser(r.Context(), principal.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"classes": classes})
}

func (h *Handler) handleGetClass(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	class, err := h.Store.GetClass(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, class)
}

func (h *Handler) handleAddMember(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if err := h.Store.AddClassMember(r.Context(), r.PathValue("id"), req.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "added"})
}

func (h *Handler) handleCreateAssignment(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	var req struct {
		Title        string `json:"title"`
		Content      string `json:"content"`
		MaxMarks     int    `json:"max_marks"`
		DaysUntilDue int    `json:"days_until_due"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	dueAt := time.Now().UTC().AddDate(0, 0, req.DaysUntilDue)
	assignment, err := h.Store.CreateAssignment(r.Context(), r.PathValue("id"), req.Title, req.Content, req.MaxMarks, dueAt)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, assignment)
}

func (h *Handler) handleListAssignments(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	assignments, err := h.Store.ListAssignments(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assignments": assignments})
}

// handleSubmit stores a student's submission file and records it.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request, principal auth.Principal) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if err := files.ValidateSubmission(contentType, int64(len(data))); err != nil {
		writeDomainError(w, err)
		return
	}

	assignmentID := r.PathValue("id")
	key := files.ObjectKey(principal.UserID, assignmentID, header.Filename)
	url, err := h.Files.Upload(r.Context(), files.BucketSubmissions, key, contentType, data)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	submission, err := h.Store.CreateSubmission(r.Context(), assignmentID, principal.UserID, url, header.Filename, contentType)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, submission)
}

func (h *Handler) handleListSubmissions(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	submissions, err := h.Store.ListSubmissions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": submissions})
}

// handleGradeSubmission runs AI grading for a stored submission. The grader
// sends the submission file (or its text) because the storage backend keeps
// the canonical copy client-side.
func (h *Handler) handleGradeSubmission(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	submissionID := r.PathValue("id")
	if _, err := h.Store.GetSubmission(r.Context(), submissionID); err != nil {
		writeDomainError(w, err)
		return
	}

	req, _, err := h.gradeRequestFrom(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := h.Docs.GradeSubmission(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	grade, err := h.Store.UpsertGrade(r.Context(), submissionID, result.Grade, result.Feedback, result.Strengths, result.Improvements)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"grade": grade, "result": result})
}

func (h *Handler) handleListGrades(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	grades, err := h.Store.ListGradesForAssignment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"grades": grades})
}

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request, principal auth.Principal) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	notifications, err := h.Store.ListNotifications(r.Context(), principal.UserID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}
