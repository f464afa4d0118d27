package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"intelliclass/internal/auth"
	"intelliclass/internal/config"
	"intelliclass/internal/docs"
	"intelliclass/internal/files"
	"intelliclass/internal/llm"
	"intelliclass/internal/meeting"
	"intelliclass/internal/ocr"
	"intelliclass/internal/store"
)

type DocumentService interface {
	GenerateAssignment(ctx context.Context, topic string, maxMarks, daysUntilDue int) (docs.Assignment, error)
	GenerateAnswerKey(ctx context.Context, assignmentContent string, maxMarks int) (docs.AnswerKey, error)
	GradeSubmission(ctx context.Context, req docs.GradeRequest) (docs.GradeResult, error)
}

type Extractor interface {
	ExtractText(ctx context.Context, name, contentType string, data []byte) (ocr.Result, error)
}

type Uploader interface {
	Upload(ctx context.Context, bucket, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, bucket, key string) error
}

type ClassStore interface {
	CreateClass(ctx context.Context, name, subject, teacherID, description string) (store.Class, error)
	GetClass(ctx context.Context, id string) (store.Class, error)
	ListClassesForUser(ctx context.Context, userID string) ([]store.Class, error)
	AddClassMember(ctx context.Context, classID, userID string) error
	CreateAssignment(ctx context.Context, classID, title, content string, maxMarks int, dueAt time.Time) (store.Assignment, error)
	GetAssignment(ctx context.Context, id string) (store.Assignment, error)
	ListAssignments(ctx context.Context, classID string) ([]store.Assignment, error)
	CreateSubmission(ctx context.Context, assignmentID, studentID, fileURL, fileName, contentType string) (store.Submission, error)
	GetSubmission(ctx context.Context, id string) (store.Submission, error)
	ListSubmissions(ctx context.Context, assignmentID string) ([]store.Submission, error)
	UpsertGrade(ctx context.Context, submissionID string, grade float64, feedback, strengths, improvements string) (store.Grade, error)
	ListGradesForAssignment(ctx context.Context, assignmentID string) ([]store.Grade, error)
	ListNotifications(ctx context.Context, userID string, limit int) ([]store.Notification, error)
}

type Handler struct {
	Config   config.Config
	Auth     *auth.Service
	Docs     DocumentService
	OCR      Extractor
	Files    Uploader
	Meetings *meeting.Service
	Watch    *meeting.Hub
	Store    ClassStore
}

func NewHandler(cfg config.Config, authSvc *auth.Service, docsSvc DocumentService, extractor Extractor, uploader Uploader, meetings *meeting.Service, watch *meeting.Hub, st ClassStore) *Handler {
	return &Handler{
		Config:   cfg,
		Auth:     authSvc,
		Docs:     docsSvc,
		OCR:      extractor,
		Files:    uploader,
		Meetings: meetings,
		Watch:    watch,
		Store:    st,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.handleHealthz)

	mux.HandleFunc("POST /v1/documents/assignment", h.withRole("teacher", h.handleGenerateAssignment))
	mux.HandleFunc("POST /v1/documents/answers", h.withRole("teacher", h.handleGenerateAnswers))
	mux.HandleFunc("POST /v1/documents/grade", h.withRole("teacher", h.handleGradeDocument))

	mux.HandleFunc("POST /v1/files/{bucket}", h.withAuth(h.handleUpload))

	mux.HandleFunc("POST /v1/classes", h.withRole("teacher", h.handleCreateClass))
	mux.HandleFunc("GET /v1/classes", h.withAuth(h.handleListClasses))
	mux.HandleFunc("GET /v1/classes/{id}", h.withAuth(h.handleGetClass))
	mux.HandleFunc("POST /v1/classes/{id}/members", h.withRole("teacher", h.handleAddMember))

	mux.HandleFunc("POST /v1/classes/{id}/assignments", h.withRole("teacher", h.handleCreateAssignment))
	mux.HandleFunc("GET /v1/classes/{id}/assignments", h.withAuth(h.handleListAssignments))
	mux.HandleFunc("POST /v1/assignments/{id}/submissions", h.withRole("student", h.handleSubmit))
	mux.HandleFunc("GET /v1/assignments/{id}/submissions", h.withRole("teacher", h.handleListSubmissions))
	mux.HandleFunc("POST /v1/submissions/{id}/grade", h.withRole("teacher", h.handleGradeSubmission))
	mux.HandleFunc("GET /v1/assignments/{id}/grades", h.withRole("teacher", h.handleListGrades))

	mux.HandleFunc("POST /v1/classes/{id}/meeting/start", h.withRole("teacher", h.handleStartMeeting))
	mux.HandleFunc("GET /v1/classes/{id}/meeting", h.withAuth(h.handleActiveMeeting))
	mux.HandleFunc("GET /v1/classes/{id}/meeting/view", h.withAuth(h.handleMeetingView))
	mux.HandleFunc("POST /v1/classes/{id}/meeting/join", h.withAuth(h.handleJoinMeeting))
	mux.HandleFunc("POST /v1/classes/{id}/meeting/end", h.withRole("teacher", h.handleEndMeeting))
	mux.HandleFunc("POST /v1/classes/{id}/meeting/signal", h.withAuth(h.handleMeetingSignal))

	mux.HandleFunc("GET /v1/notifications", h.withAuth(h.handleListNotifications))
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, principal auth.Principal)

func (h *Handler) withAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := h.Auth.AuthenticateRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)), principal)
	}
}

func (h *Handler) withRole(role string, next authedHandler) http.HandlerFunc {
	return h.withAuth(func(w http.ResponseWriter, r *http.Request, principal auth.Principal) {
		if principal.Role != role {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r, principal)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("httpapi: encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// writeDomainError maps domain sentinels to HTTP statuses; everything
// unmatched is a 502 when it came from a provider and a 500 otherwise.
func writeDomainError(w http.ResponseWriter, err error) {
	var badReq badRequestError
	switch {
	case errors.As(err, &badReq):
		writeError(w, http.StatusBadRequest, badReq.Error())
	case errors.Is(err, ocr.ErrUnsupportedType), errors.Is(err, files.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ocr.ErrFileTooLarge), errors.Is(err, files.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, ocr.ErrEmptyExtraction), errors.Is(err, ocr.ErrInvalidDocument):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, files.ErrUploadFailed), errors.Is(err, files.ErrDeleteFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, meeting.ErrTeacherOnly):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, meeting.ErrNoMeeting), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrMeetingActive):
		writeError(w, http.StatusConflict, err.Error())
	case isProviderFailure(err):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func isProviderFailure(err error) bool {
	var pe *llm.ProviderError
	return errors.As(err, &pe)
}
