package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"intelliclass/internal/auth"
	"intelliclass/internal/config"
	"intelliclass/internal/docs"
	"intelliclass/internal/meeting"
	"intelliclass/internal/ocr"
	"intelliclass/internal/queue"
	"intelliclass/internal/store"
)

const testSigningKey = "test-signing-key"

type stubDocs struct {
	gradeResult docs.GradeResult
	lastGrade   docs.GradeRequest
}

func (s *stubDocs) GenerateAssignment(_ context.Context, topic string, maxMarks, daysUntilDue int) (docs.Assignment, error) {
	return docs.Assignment{Topic: topic, MaxMarks: maxMarks, DaysUntilDue: daysUntilDue, Content: "generated"}, nil
}

func (s *stubDocs) GenerateAnswerKey(_ context.Context, _ string, maxMarks int) (docs.AnswerKey, error) {
	return docs.AnswerKey{MaxMarks: maxMarks, Content: "answers"}, nil
}

func (s *stubDocs) GradeSubmission(_ context.Context, req docs.GradeRequest) (docs.GradeResult, error) {
	s.lastGrade = req
	return s.gradeResult, nil
}

type stubExtractor struct {
	result ocr.Result
	err    error
	calls  int
}

func (s *stubExtractor) ExtractText(_ context.Context, name, contentType string, data []byte) (ocr.Result, error) {
	s.calls++
	if s.err != nil {
		return ocr.Result{}, s.err
	}
	res := s.result
	res.File = ocr.FileInfo{Name: name, ContentType: contentType, Size: int64(len(data))}
	return res, nil
}

type stubUploader struct {
	uploads []string
}

func (s *stubUploader) Upload(_ context.Context, bucket, key, _ string, _ []byte) (string, error) {
	s.uploads = append(s.uploads, bucket+"/"+key)
	return "https://cdn.example.com/" + bucket + "/" + key, nil
}

func (s *stubUploader) Delete(_ context.Context, _, _ string) error { return nil }

type stubMeetingStore struct {
	mu     sync.Mutex
	active map[string]store.Meeting
}

func (s *stubMeetingStore) StartMeeting(_ context.Context, classID, hostID string) (store.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[classID]; ok {
		return store.Meeting{}, store.ErrMeetingActive
	}
	m := store.Meeting{ID: "m-" + classID, ClassID: classID, HostID: hostID, StartedAt: time.Now()}
	s.active[classID] = m
	return m, nil
}

func (s *stubMeetingStore) ActiveMeeting(_ context.Context, classID string) (store.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.active[classID]; ok {
		return m, nil
	}
	return store.Meeting{}, store.ErrNotFound
}

func (s *stubMeetingStore) EndMeeting(_ context.Context, meetingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for classID, m := range s.active {
		if m.ID == meetingID {
			delete(s.active, classID)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *stubMeetingStore) ListClassMemberIDs(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

type stubNotifier struct{ jobs []queue.NotificationJob }

func (s *stubNotifier) PushNotificationJob(_ context.Context, job queue.NotificationJob) error {
	s.jobs = append(s.jobs, job)
	return nil
}

type stubClassStore struct {
	classes     map[string]store.Class
	submissions map[string]store.Submission
	grades      map[string]store.Grade
}

func newStubClassStore() *stubClassStore {
	return &stubClassStore{
		classes:     make(map[string]store.Class),
		submissions: make(map[string]store.Submission),
		grades:      make(map[string]store.Grade),
	}
}

func (s *stubClassStore) CreateClass(_ context.Context, name, subject, teacherID, _ string) (store.Class, error) {
	c := store.Class{ID: fmt.Sprintf("c-%d", len(s.classes)+1), Name: name, Subject: subject, TeacherID: teacherID}
	s.classes[c.ID] = c
	return c, nil
}

func (s *stubClassStore) GetClass(_ context.Context, id string) (store.Class, error) {
	if c, ok := s.classes[id]; ok {
		return c, nil
	}
	return store.Class{}, store.ErrNotFound
}

func (s *stubClassStore) ListClassesForUser(_ context.Context, _ string) ([]store.Class, error) {
	var out []store.Class
	for _, c := range s.classes {
		out = append(out, c)
	}
	return out, nil
}

func (s *stubClassStore) AddClassMember(_ context.Context, _, _ string) error { return nil }

func (s *stubClassStore) CreateAssignment(_ context.Context, classID, title, content string, maxMarks int, dueAt time.Time) (store.Assignment, error) {
	return store.Assignment{ID: "a-1", ClassID: classID, Title: title, Content: content, MaxMarks: maxMarks, DueAt: dueAt}, nil
}

func (s *stubClassStore) GetAssignment(_ context.Context, id string) (store.Assignment, error) {
	return store.Assignment{ID: id}, nil
}

func (s *stubClassStore) ListAssignments(_ context.Context, _ string) ([]store.Assignment, error) {
	return nil, nil
}

func (s *stubClassStore) CreateSubmission(_ context.Context, assignmentID, studentID, fileURL, fileName, contentType string) (store.Submission, error) {
	sub := store.Submission{ID: "s-1", AssignmentID: assignmentID, StudentID: studentID, FileURL: fileURL, FileName: fileName, ContentType: contentType}
	s.submissions[sub.ID] = sub
	return sub, nil
}

func (s *stubClassStore) GetSubmission(_ context.Context, id string) (store.Submission, error) {
	if sub, ok := s.submissions[id]; ok {
		return sub, nil
	}
	return store.Submission{}, store.ErrNotFound
}

func (s *stubClassStore) ListSubmissions(_ context.Context, _ string) ([]store.Submission, error) {
	return nil, nil
}

func (s *stubClassStore) UpsertGrade(_ context.Context, submissionID string, grade float64, feedback, strengths, improvements string) (store.Grade, error) {
	g := store.Grade{ID: "g-1", SubmissionID: submissionID, Grade: grade, Feedback: feedback, Strengths: strengths, Improvements: improvements}
	s.grades[submissionID] = g
	return g, nil
}

func (s *stubClassStore) ListGradesForAssignment(_ context.Context, _ string) ([]store.Grade, error) {
	return nil, nil
}

func (s *stubClassStore) ListNotifications(_ context.Context, _ string, _ int) ([]store.Notification, error) {
	return nil, nil
}

type testEnv struct {
	handler   *Handler
	mux       *http.ServeMux
	docs      *stubDocs
	extractor *stubExtractor
	uploader  *stubUploader
	classes   *stubClassStore
	notifier  *stubNotifier
}

func newTestEnv() *testEnv {
	cfg := config.Default()
	cfg.Security.TokenSigningKey = testSigningKey

	confidence := 90.0
	env := &testEnv{
		docs:      &stubDocs{gradeResult: docs.GradeResult{Grade: 85, Feedback: "Good"}},
		extractor: &stubExtractor{result: ocr.Result{Text: "extracted words", Confidence: &confidence}},
		uploader:  &stubUploader{},
		classes:   newStubClassStore(),
		notifier:  &stubNotifier{},
	}

	meetings := meeting.NewService(&stubMeetingStore{active: make(map[string]store.Meeting)}, env.notifier, "https://meet.example.com")
	// Hour-long interval: watcher state changes in tests come from the
	// synchronous first refresh or a forwarded signal, never a poll tick.
	watch := meeting.NewHub(meetings, time.Hour)
	authSvc := auth.NewService(testSigningKey)
	env.handler = NewHandler(cfg, authSvc, env.docs, env.extractor, env.uploader, meetings, watch, env.classes)
	env.mux = http.NewServeMux()
	env.handler.RegisterRoutes(env.mux)
	return env
}

func tokenFor(t *testing.T, role string) string {
	t.Helper()
	svc := auth.NewService(testSigningKey)
	token, err := svc.IssueToken(auth.Principal{UserID: "u-" + role, Name: "Test " + role, Role: role}, time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func multipartFile(t *testing.T, fieldName, fileName, contentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, fileName))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv()
	rec := doJSON(t, env.mux, "GET", "/v1/classes", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestTeacherOnlyRoutes(t *testing.T) {
	env := newTestEnv()
	rec := doJSON(t, env.mux, "POST", "/v1/documents/assignment", tokenFor(t, "student"),
		map[string]any{"topic": "Algebra", "max_marks": 20, "days_until_due": 3})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestGenerateAssignment(t *testing.T) {
	env := newTestEnv()
	rec := doJSON(t, env.mux, "POST", "/v1/documents/assignment", tokenFor(t, "teacher"),
		map[string]any{"topic": "Algebra", "max_marks": 20, "days_until_due": 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp docs.Assignment
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Content != "generated" || resp.Topic != "Algebra" || resp.MaxMarks != 20 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestGenerateAssignmentRequiresTopic(t *testing.T) {
	env := newTestEnv()
	rec := doJSON(t, env.mux, "POST", "/v1/documents/assignment", tokenFor(t, "teacher"),
		map[string]any{"max_marks": 20})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGradeDocumentJSONBody(t *testing.T) {
	env := newTestEnv()
	rec := doJSON(t, env.mux, "POST", "/v1/documents/grade", tokenFor(t, "teacher"),
		map[string]any{"submission_text": "my essay", "criteria": "clarity"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if env.docs.lastGrade.SubmissionText != "my essay" || env.docs.lastGrade.Criteria != "clarity" {
		t.Fatalf("grade request not forwarded: %+v", env.docs.lastGrade)
	}
	if env.extractor.calls != 0 {
		t.Fatal("ocr must not run for JSON bodies")
	}
}

func TestGradeDocumentMultipartRunsOCR(t *testing.T) {
	env := newTestEnv()
	body, contentType := multipartFile(t, "file", "scan.png", "image/png", []byte("png-bytes"),
		map[string]string{"criteria": "neatness"})

	req := httptest.NewRequest("POST", "/v1/documents/grade", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "teacher"))
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if env.extractor.calls != 1 {
		t.Fatalf("extractor calls = %d, want 1", env.extractor.calls)
	}
	if env.docs.lastGrade.SubmissionText != "extracted words" {
		t.Fatalf("ocr text not forwarded to grader: %+v", env.docs.lastGrade)
	}
	if !strings.Contains(rec.Body.String(), "extraction") {
		t.Fatal("response must include the extraction envelope")
	}
}

func TestUploadSubmissionFile(t *testing.T) {
	env := newTestEnv()
	body, contentType := multipartFile(t, "file", "essay.png", "image/png", []byte("data"), nil)

	req := httptest.NewRequest("POST", "/v1/files/submissions", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "student"))
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(env.uploader.uploads) != 1 || !strings.HasPrefix(env.uploader.uploads[0], "submissions/u-student/") {
		t.Fatalf("unexpected uploads %v", env.uploader.uploads)
	}
}

func TestUploadRejectsWrongType(t *testing.T) {
	env := newTestEnv()
	body, contentType := multipartFile(t, "file", "tool.exe", "application/x-msdownload", []byte("data"), nil)

	req := httptest.NewRequest("POST", "/v1/files/submissions", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "student"))
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(env.uploader.uploads) != 0 {
		t.Fatal("invalid files must not reach the storage backend")
	}
}

func TestUploadUnknownBucket(t *testing.T) {
	env := newTestEnv()
	body, contentType := multipartFile(t, "file", "a.png", "image/png", []byte("d"), nil)

	req := httptest.NewRequest("POST", "/v1/files/secrets", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "student"))
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestMeetingLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv()
	teacher := tokenFor(t, "teacher")
	student := tokenFor(t, "student")

	// Students cannot start.
	rec := doJSON(t, env.mux, "POST", "/v1/classes/c1/meeting/start", student, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("student start status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, env.mux, "POST", "/v1/classes/c1/meeting/start", teacher, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "join_url") {
		t.Fatal("start response missing join_url")
	}
	if len(env.notifier.jobs) != 1 {
		t.Fatalf("expected a notification job, got %d", len(env.notifier.jobs))
	}

	rec = doJSON(t, env.mux, "GET", "/v1/classes/c1/meeting", student, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"active":true`) {
		t.Fatalf("active status = %d body = %s", rec.Code, rec.Body.String())
	}

	// A non-host signal must bounce off the shared state.
	rec = doJSON(t, env.mux, "POST", "/v1/classes/c1/meeting/signal", student,
		map[string]any{"type": "MEETING_ENDED"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-host signal status = %d, want 403", rec.Code)
	}
	rec = doJSON(t, env.mux, "GET", "/v1/classes/c1/meeting", student, nil)
	if !strings.Contains(rec.Body.String(), `"active":true`) {
		t.Fatalf("meeting must survive a non-host signal, body = %s", rec.Body.String())
	}

	rec = doJSON(t, env.mux, "POST", "/v1/classes/c1/meeting/signal", teacher,
		map[string]any{"type": "MEETING_ENDED"})
	if rec.Code != http.StatusOK {
		t.Fatalf("host signal status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, env.mux, "GET", "/v1/classes/c1/meeting", student, nil)
	if !strings.Contains(rec.Body.String(), `"active":false`) {
		t.Fatalf("meeting must be ended after host signal, body = %s", rec.Body.String())
	}
}

func TestSignalFromOtherUserCannotEndMeeting(t *testing.T) {
	env := newTestEnv()
	teacher := tokenFor(t, "teacher")
	student := tokenFor(t, "student")

	rec := doJSON(t, env.mux, "POST", "/v1/classes/c9/meeting/start", teacher, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, env.mux, "POST", "/v1/classes/c9/meeting/signal", student,
		map[string]any{"type": "MEETING_ENDED"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("signal status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, env.mux, "GET", "/v1/classes/c9/meeting", teacher, nil)
	if !strings.Contains(rec.Body.String(), `"active":true`) {
		t.Fatalf("shared meeting must be untouched, body = %s", rec.Body.String())
	}
}

func TestMeetingViewEndpoint(t *testing.T) {
	env := newTestEnv()
	teacher := tokenFor(t, "teacher")
	student := tokenFor(t, "student")

	rec := doJSON(t, env.mux, "GET", "/v1/classes/c1/meeting/view", student, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), string(meeting.StateNoMeeting)) {
		t.Fatalf("view status = %d body = %s", rec.Code, rec.Body.String())
	}

	if rec := doJSON(t, env.mux, "POST", "/v1/classes/c2/meeting/start", teacher, nil); rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, env.mux, "GET", "/v1/classes/c2/meeting/view", student, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), string(meeting.StateInProgress)) {
		t.Fatalf("view after start: status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitAndGradeSubmission(t *testing.T) {
	env := newTestEnv()
	student := tokenFor(t, "student")
	teacher := tokenFor(t, "teacher")

	body, contentType := multipartFile(t, "file", "homework.pdf", "application/pdf", []byte("%PDF-"), nil)
	req := httptest.NewRequest("POST", "/v1/assignments/a1/submissions", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+student)
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body.String())
	}

	rec2 := doJSON(t, env.mux, "POST", "/v1/submissions/s-1/grade", teacher,
		map[string]any{"submission_text": "essay text"})
	if rec2.Code != http.StatusOK {
		t.Fatalf("grade status = %d: %s", rec2.Code, rec2.Body.String())
	}
	if g, ok := env.classes.grades["s-1"]; !ok || g.Grade != 85 {
		t.Fatalf("grade not persisted: %+v", env.classes.grades)
	}

	rec3 := doJSON(t, env.mux, "POST", "/v1/submissions/missing/grade", teacher,
		map[string]any{"submission_text": "x"})
	if rec3.Code != http.StatusNotFound {
		t.Fatalf("grade missing submission status = %d, want 404", rec3.Code)
	}
}
