package niforms

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
)

// Upload error codes, numbered like the CMS reports them.
const (
	UploadOK       = 0
	UploadNoFile   = 4
	UploadCantOpen = 9
)

// Files is the uploaded file view.
type Files struct {
	submit  *FormSubmit
	cached  bool
	current map[string][]*multipart.FileHeader
}

// Get returns the uploaded files by field, or nil when there are none.
func (f *Files) Get() map[string][]*multipart.FileHeader {
	if !f.cached {
		f.current = nil
		f.submit.parse()
		if req := f.submit.req; req != nil && req.MultipartForm != nil && len(req.MultipartForm.File) > 0 {
			f.current = req.MultipartForm.File
			f.cached = true
		}
	}
	return f.current
}

// Exists reports whether any files were uploaded.
func (f *Files) Exists() bool {
	return f.Get() != nil
}

// Set replaces the current files.
func (f *Files) Set(files map[string][]*multipart.FileHeader) *Files {
	f.current = files
	f.cached = true
	return f
}

func (f *Files) Has(key string) bool {
	_, ok := f.Get()[key]
	return ok
}

// Count returns how many files were uploaded under key.
func (f *Files) Count(key string) int {
	return len(f.Get()[key])
}

// File returns the index-th upload for key, or nil when key is absent.
func (f *Files) File(key string, index int) (*File, error) {
	headers, ok := f.Get()[key]
	if !ok {
		return nil, nil
	}
	if index < 0 || index >= len(headers) {
		return nil, fmt.Errorf("niforms: file index for %q must be from 0 to %d, got %d", key, len(headers)-1, index)
	}
	return newFile(headers[index]), nil
}

// Reset drops overrides so the next read comes from the request again.
func (f *Files) Reset() *Files {
	f.cached = false
	return f
}

// File is one uploaded file.
type File struct {
	// Name is the file name reported by the client.
	Name string
	// Type is the content type reported by the client; it is not checked.
	Type string
	// Size in bytes.
	Size int64
	// Error is UploadOK, UploadNoFile or UploadCantOpen.
	Error int

	header      *multipart.FileHeader
	currentPath string
	moved       bool
}

func newFile(h *multipart.FileHeader) *File {
	f := &File{
		Name:   h.Filename,
		Type:   h.Header.Get("Content-Type"),
		Size:   h.Size,
		header: h,
	}
	switch {
	case h.Size == 0 && h.Filename == "":
		f.Error = UploadNoFile
	default:
		rc, err := h.Open()
		if err != nil {
			f.Error = UploadCantOpen
			break
		}
		if osf, ok := rc.(*os.File); ok {
			f.currentPath = osf.Name()
		}
		rc.Close()
	}
	return f
}

// Open returns a reader for the file at its current location.
func (f *File) Open() (io.ReadCloser, error) {
	if f.moved {
		return os.Open(f.currentPath)
	}
	if f.header == nil {
		return nil, errors.New("niforms: file has no upload")
	}
	return f.header.Open()
}

// CurrentPath returns where the file lives on disk; uploads kept in memory
// have no path until moved.
func (f *File) CurrentPath() string {
	return f.currentPath
}

// Exists reports whether the file can still be read.
func (f *File) Exists() bool {
	if f.Error != UploadOK {
		return false
	}
	if f.currentPath != "" {
		info, err := os.Stat(f.currentPath)
		return err == nil && info.Mode().IsRegular()
	}
	return f.header != nil
}

// MoveTo copies the upload to dest. On success the current path becomes
// dest.
func (f *File) MoveTo(dest string) error {
	if !f.Exists() {
		return errors.New("niforms: upload does not exist")
	}
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	f.currentPath = dest
	f.moved = true
	return nil
}

// MimeType sniffs the content type from the file's first bytes.
func (f *File) MimeType() string {
	if !f.Exists() {
		return ""
	}
	rc, err := f.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()
	buf := make([]byte, 512)
	n, _ := io.ReadFull(rc, buf)
	return http.DetectContentType(buf[:n])
}
