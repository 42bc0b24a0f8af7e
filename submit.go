package niforms

import (
	"errors"
	"mime"
	"net/http"
	"net/url"
	"sync"
)

// DefaultMaxMemory bounds the part of a multipart body kept in memory;
// the rest of each file spills to temporary files.
const DefaultMaxMemory = 32 << 20

// FormSubmit is the submitted data for one request. Post and Files are
// read from the request on first use and cached; handlers may replace
// them before the processor sees them.
type FormSubmit struct {
	req   *http.Request
	post  *Post
	files *Files

	parseOnce sync.Once
	parseErr  error
}

// NewFormSubmit wraps r. When stripSlashes is set, posted values are
// passed through StripSlashes on load.
func NewFormSubmit(r *http.Request, stripSlashes bool) *FormSubmit {
	s := &FormSubmit{req: r}
	normalize := func(v string) string { return v }
	if stripSlashes {
		normalize = StripSlashes
	}
	s.post = &Post{submit: s, normalize: normalize}
	s.files = &Files{submit: s}
	return s
}

// Request returns the underlying request.
func (s *FormSubmit) Request() *http.Request {
	return s.req
}

func (s *FormSubmit) Post() *Post {
	return s.post
}

func (s *FormSubmit) Files() *Files {
	return s.files
}

// Err returns the error from parsing the request body, if any.
func (s *FormSubmit) Err() error {
	s.parse()
	return s.parseErr
}

func (s *FormSubmit) parse() {
	s.parseOnce.Do(func() {
		if s.req == nil {
			return
		}
		ct, _, _ := mime.ParseMediaType(s.req.Header.Get("Content-Type"))
		if ct == "multipart/form-data" {
			err := s.req.ParseMultipartForm(DefaultMaxMemory)
			if err != nil && !errors.Is(err, http.ErrNotMultipart) {
				s.parseErr = err
			}
			return
		}
		s.parseErr = s.req.ParseForm()
	})
}

// Post is the posted field view. A request without posted fields has no
// values at all (Exists is false) rather than an empty set.
type Post struct {
	submit    *FormSubmit
	normalize func(string) string
	cached    bool
	current   url.Values
}

// Get returns the current values, or nil when nothing was posted.
func (p *Post) Get() url.Values {
	if !p.cached {
		p.current = nil
		p.submit.parse()
		if req := p.submit.req; req != nil && len(req.PostForm) > 0 {
			p.current = make(url.Values, len(req.PostForm))
			for key, values := range req.PostForm {
				out := make([]string, len(values))
				for i, v := range values {
					out[i] = p.normalize(v)
				}
				p.current[key] = out
			}
			p.cached = true
		}
	}
	return p.current
}

// Exists reports whether any fields were posted.
func (p *Post) Exists() bool {
	return p.Get() != nil
}

func (p *Post) Has(key string) bool {
	_, ok := p.Get()[key]
	return ok
}

// Value returns the first value for key or def when the key is absent.
func (p *Post) Value(key, def string) string {
	values, ok := p.Get()[key]
	if !ok || len(values) == 0 {
		return def
	}
	return values[0]
}

// Values returns every value posted for key.
func (p *Post) Values(key string) []string {
	return p.Get()[key]
}

// SetValue replaces the values for key.
func (p *Post) SetValue(key string, values ...string) *Post {
	current := p.Get()
	next := make(url.Values, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	next[key] = values
	return p.Set(next)
}

// Set forces the current values to values.
func (p *Post) Set(values url.Values) *Post {
	p.current = values
	p.cached = true
	return p
}

func (p *Post) Unset(key string) *Post {
	if !p.Has(key) {
		return p
	}
	current := p.Get()
	next := make(url.Values, len(current))
	for k, v := range current {
		if k != key {
			next[k] = v
		}
	}
	return p.Set(next)
}

// Reset drops overrides so the next read comes from the request again.
func (p *Post) Reset() *Post {
	p.cached = false
	return p
}
