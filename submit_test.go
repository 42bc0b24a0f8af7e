package niforms

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func postRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func multipartRequest(t *testing.T, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for name, content := range files {
		fw, err := w.CreateFormFile("upload", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(fw, content); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestPostValues(t *testing.T) {
	req := postRequest(url.Values{
		"name":  {`O\'Brien`},
		"tags":  {"a", "b"},
		"empty": {""},
	})
	post := NewFormSubmit(req, true).Post()

	if !post.Exists() {
		t.Fatal("Exists() = false")
	}
	if got := post.Value("name", ""); got != "O'Brien" {
		t.Errorf("Value(name) = %q, want slashes stripped", got)
	}
	if diff := cmp.Diff([]string{"a", "b"}, post.Values("tags")); diff != "" {
		t.Errorf("Values(tags) mismatch (-want +got):\n%s", diff)
	}
	if !post.Has("empty") || post.Value("empty", "def") != "" {
		t.Error("an empty value is still present")
	}
	if post.Has("missing") || post.Value("missing", "def") != "def" {
		t.Error("missing key should return the default")
	}
}

func TestPostKeepsSlashes(t *testing.T) {
	post := NewFormSubmit(postRequest(url.Values{"name": {`O\'Brien`}}), false).Post()
	if got := post.Value("name", ""); got != `O\'Brien` {
		t.Errorf("Value(name) = %q, want raw value", got)
	}
}

func TestPostStripSlashesLeavesNames(t *testing.T) {
	post := NewFormSubmit(postRequest(url.Values{`a\'b`: {`c\'d`}}), true).Post()
	if got := post.Value(`a\'b`, ""); got != "c'd" {
		t.Errorf("Value() = %q, want value unslashed under the raw name", got)
	}
	if post.Has("a'b") {
		t.Error("field name was unslashed")
	}
}

func TestPostOverrides(t *testing.T) {
	post := NewFormSubmit(postRequest(url.Values{"a": {"1"}, "b": {"2"}}), true).Post()

	post.SetValue("c", "3").Unset("a")
	if post.Has("a") || post.Value("c", "") != "3" || post.Value("b", "") != "2" {
		t.Errorf("overrides not applied: %v", post.Get())
	}

	post.Reset()
	if !post.Has("a") || post.Has("c") {
		t.Errorf("Reset() should reload from the request: %v", post.Get())
	}

	post.Set(url.Values{"only": {"x"}})
	if diff := cmp.Diff(url.Values{"only": {"x"}}, post.Get()); diff != "" {
		t.Errorf("Set() mismatch (-want +got):\n%s", diff)
	}
}

func TestPostEmptyRequest(t *testing.T) {
	submit := NewFormSubmit(httptest.NewRequest(http.MethodPost, "/", nil), true)
	if submit.Post().Exists() {
		t.Error("Exists() = true for empty body")
	}
	if submit.Post().Get() != nil {
		t.Error("Get() should be nil for empty body")
	}
	if submit.Files().Exists() {
		t.Error("Files().Exists() = true for empty body")
	}
	if err := submit.Err(); err != nil {
		t.Errorf("Err() = %v", err)
	}
}

func TestFilesUpload(t *testing.T) {
	req := multipartRequest(t, map[string]string{"note": `it\'s`}, map[string]string{"hello.txt": "hello world"})
	submit := NewFormSubmit(req, true)

	if got := submit.Post().Value("note", ""); got != "it's" {
		t.Errorf("multipart field = %q", got)
	}

	files := submit.Files()
	if !files.Exists() || !files.Has("upload") {
		t.Fatal("upload missing")
	}
	if files.Count("upload") != 1 {
		t.Errorf("Count() = %d, want 1", files.Count("upload"))
	}

	f, err := files.File("upload", 0)
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}
	if f.Name != "hello.txt" || f.Size != int64(len("hello world")) || f.Error != UploadOK {
		t.Errorf("file = %+v", f)
	}
	if !f.Exists() {
		t.Error("Exists() = false")
	}
	if got := f.MimeType(); got != "text/plain; charset=utf-8" {
		t.Errorf("MimeType() = %q", got)
	}

	dest := filepath.Join(t.TempDir(), "saved.txt")
	if err := f.MoveTo(dest); err != nil {
		t.Fatalf("MoveTo() error = %v", err)
	}
	if f.CurrentPath() != dest {
		t.Errorf("CurrentPath() = %q, want %q", f.CurrentPath(), dest)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "hello world" {
		t.Errorf("moved file = %q, %v", data, err)
	}

	if _, err := files.File("upload", 1); err == nil {
		t.Error("File() with bad index should fail")
	}
	if f, err := files.File("other", 0); f != nil || err != nil {
		t.Errorf("File(other) = %v, %v; want nil, nil", f, err)
	}
}
