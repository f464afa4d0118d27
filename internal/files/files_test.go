package files

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
)

func TestValidateSubmission(t *testing.T) {
	if err := ValidateSubmission("image/png", 9<<20); err != nil {
		t.Fatalf("9 MiB png must pass: %v", err)
	}
	if err := ValidateSubmission("image/png", 11<<20); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("11 MiB must be rejected as too large, got %v", err)
	}
	if err := ValidateSubmission("application/zip", 1024); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("zip submissions must be rejected, got %v", err)
	}
	if err := ValidateSubmission("application/pdf", 1024); err != nil {
		t.Fatalf("pdf must pass: %v", err)
	}
}

func TestValidateMaterial(t *testing.T) {
	if err := ValidateMaterial("notes.docx", 1024); err != nil {
		t.Fatalf("docx material must pass: %v", err)
	}
	if err := ValidateMaterial("archive.zip", 1024); err != nil {
		t.Fatalf("zip material must pass: %v", err)
	}
	if err := ValidateMaterial("script.sh", 1024); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("sh material must be rejected, got %v", err)
	}
	if err := ValidateMaterial("big.pdf", 11<<20); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("oversized material must be rejected, got %v", err)
	}
}

func TestObjectKeyShape(t *testing.T) {
	key := ObjectKey("user-1", "hw3", "My Essay.PDF")
	pattern := regexp.MustCompile(`^user-1/hw3/\d+_[0-9a-f]{8}\.pdf$`)
	if !pattern.MatchString(key) {
		t.Fatalf("key %q does not match expected shape", key)
	}

	key = ObjectKey("user-2", "", "photo.png")
	pattern = regexp.MustCompile(`^user-2/\d+_[0-9a-f]{8}\.png$`)
	if !pattern.MatchString(key) {
		t.Fatalf("key %q does not match folderless shape", key)
	}
}

func TestClientUpload(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "service-key")
	url, err := c.Upload(context.Background(), BucketSubmissions, "u1/1_abcd1234.png", "image/png", []byte("data"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if gotPath != "/object/submissions/u1/1_abcd1234.png" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer service-key" {
		t.Fatalf("unexpected auth %q", gotAuth)
	}
	if url != srv.URL+"/object/public/submissions/u1/1_abcd1234.png" {
		t.Fatalf("unexpected public url %q", url)
	}
}

func TestClientUploadRejectsInvalidBeforeNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	_, err := c.Upload(context.Background(), BucketSubmissions, "u1/x.exe", "application/x-msdownload", []byte("data"))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected type rejection, got %v", err)
	}
	if called {
		t.Fatal("storage backend must not be contacted for invalid files")
	}
}

func TestClientUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bucket not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	_, err := c.Upload(context.Background(), BucketMaterials, "u1/notes.pdf", "application/pdf", []byte("data"))
	if !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("expected ErrUploadFailed, got %v", err)
	}
}

func TestClientDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	if err := c.Delete(context.Background(), BucketAvatars, "u1/a.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
