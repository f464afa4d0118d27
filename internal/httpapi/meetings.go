package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"intelliclass/internal/auth"
	"intelliclass/internal/files"
	"intelliclass/internal/meeting"
)

func (h *Handler) handleStartMeeting(w http.ResponseWriter, r *http.Request, principal auth.Principal) {
	session, err := h.Meetings.Start(r.Context(), r.PathValue("id"), principal.UserID, principal.Name, principal.Role)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"meeting":  session.Meeting,
		"join_url": session.JoinURL,
	})
}

func (h *Handler) handleActiveMeeting(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	m, active, err := h.Meetings.Active(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !active {
		writeJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"active": true, "meeting": m})
}

func (h *Handler) handleJoinMeeting(w http.ResponseWriter, r *http.Request, principal auth.Principal) {
	session, err := h.Meetings.Join(r.Context(), r.PathValue("id"), principal.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"meeting":  session.Meeting,
		"join_url": session.JoinURL,
	})
}

func (h *Handler) handleEndMeeting(w http.ResponseWriter, r *http.Request, principal auth.Principal) {
	if err := h.Meetings.End(r.Context(), r.PathValue("id"), principal.Role); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ended"})
}

// handleMeetingSignal receives the embedded meeting UI's postMessage relay,
// e.g. {"type":"MEETING_ENDED"}. Only the meeting host's signal reaches the
// shared state.
func (h *Handler) handleMeetingSignal(w http.ResponseWriter, r *http.Request, principal auth.Principal) {
	var sig struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	classID := r.PathValue("id")
	if err := h.Meetings.HandleSignal(r.Context(), classID, principal.UserID, sig.Type); err != nil {
		writeDomainError(w, err)
		return
	}
	if h.Watch != nil {
		h.Watch.Signal(classID, sig.Type)
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ended"})
}

// handleMeetingView serves the polled view of a class's meeting state. The
// poll loop behind it runs on the configured interval, so the view may lag
// the shared state by up to one tick.
func (h *Handler) handleMeetingView(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	watcher := h.Watch.Watcher(r.PathValue("id"))
	state := watcher.State()
	resp := map[string]any{"state": state}
	if state == meeting.StateInProgress {
		resp["meeting"] = watcher.Meeting()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleUpload stores a file in a named bucket after per-bucket validation.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request, principal auth.Principal) {
	bucket := r.PathValue("bucket")
	switch bucket {
	case files.BucketSubmissions, files.BucketMaterials, files.BucketAvatars:
	default:
		writeError(w, http.StatusNotFound, "unknown bucket")
		return
	}

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
	if err := files.ValidateFor(bucket, header.Filename, contentType, int64(len(data))); err != nil {
		writeDomainError(w, err)
		return
	}

	key := files.ObjectKey(principal.UserID, r.FormValue("folder"), header.Filename)
	url, err := h.Files.Upload(r.Context(), bucket, key, contentType, data)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"key": key, "url": url})
}
