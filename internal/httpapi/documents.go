package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"intelliclass/internal/auth"
	"intelliclass/internal/docs"
)

const maxUploadMemory = 12 << 20

func (h *Handler) handleGenerateAssignment(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	var req struct {
		Topic        string `json:"topic"`
		MaxMarks     int    `json:"max_marks"`
		DaysUntilDue int    `json:"days_until_due"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}

	assignment, err := h.Docs.GenerateAssignment(r.Context(), req.Topic, req.MaxMarks, req.DaysUntilDue)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assignment)
}

func (h *Handler) handleGenerateAnswers(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	var req struct {
		AssignmentContent string `json:"assignment_content"`
		MaxMarks          int    `json:"max_marks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.AssignmentContent) == "" {
		writeError(w, http.StatusBadRequest, "assignment_content is required")
		return
	}

	key, err := h.Docs.GenerateAnswerKey(r.Context(), req.AssignmentContent, req.MaxMarks)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, key)
}

// handleGradeDocument grades an ad-hoc document: either a JSON body with
// submission_text, or a multipart form with a file that goes through OCR.
func (h *Handler) handleGradeDocument(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	req, ocrResult, err := h.gradeRequestFrom(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := h.Docs.GradeSubmission(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := map[string]any{"result": result}
	if ocrResult != nil {
		resp["extraction"] = ocrResult
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) gradeRequestFrom(r *http.Request) (docs.GradeRequest, any, error) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		var req struct {
			Mode              string `json:"mode"`
			SubmissionText    string `json:"submission_text"`
			AssignmentContent string `json:"assignment_content"`
			Criteria          string `json:"criteria"`
			Instructions      string `json:"instructions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return docs.GradeRequest{}, nil, errBadRequest("invalid json")
		}
		return docs.GradeRequest{
			Mode:              req.Mode,
			SubmissionText:    req.SubmissionText,
			AssignmentContent: req.AssignmentContent,
			Criteria:          req.Criteria,
			Instructions:      req.Instructions,
		}, nil, nil
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return docs.GradeRequest{}, nil, errBadRequest("invalid multipart form")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return docs.GradeRequest{}, nil, errBadRequest("file field is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return docs.GradeRequest{}, nil, err
	}

	extraction, err := h.OCR.ExtractText(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		return docs.GradeRequest{}, nil, err
	}

	return docs.GradeRequest{
		Mode:              r.FormValue("mode"),
		SubmissionText:    extraction.Text,
		AssignmentContent: r.FormValue("assignment_content"),
		Criteria:          r.FormValue("criteria"),
		Instructions:      r.FormValue("instructions"),
	}, extraction, nil
}

type badRequestError string

func (e badRequestError) Error() string { return string(e) }

func errBadRequest(msg string) error { return badRequestError(msg) }
