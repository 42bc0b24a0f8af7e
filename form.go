package niforms

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// FormIDPrefix is prepended to the hash when a form has no explicit id.
const FormIDPrefix = "nif"

// Form is one shortcode invocation: its attributes, body, tag and the side
// channels (hidden fields, saved data, scripts) that handlers fill in.
//
// The hash is computed once from the attributes, content, tag and post id
// as they were at the first call to Hash and never changes afterwards; it is
// the cache key and the token that links a render to its submit.
type Form struct {
	attrs   *Fields
	content string
	tag     string
	postID  string
	hidden  *Fields
	saved   map[string]any
	scripts []string
	hash    string
}

// NewForm builds a form from shortcode input. A missing id is generated
// from the hash; method defaults to post and enctype to multipart so file
// fields work without extra attributes.
func NewForm(attrs []Field, content, tag, postID string) *Form {
	f := &Form{
		attrs:   NewFields(attrs...),
		content: content,
		tag:     tag,
		postID:  postID,
		hidden:  NewFields(),
		saved:   make(map[string]any),
	}

	if f.Attribute("id", "") == "" {
		f.SetAttribute("id", FormIDPrefix+f.Hash())
	}
	if !f.HasAttribute("method") {
		f.SetAttribute("method", "post")
	}
	if !f.HasAttribute("enctype") {
		f.SetAttribute("enctype", "multipart/form-data")
	}
	return f
}

// Hash returns the memoized md5 identity of the form.
func (f *Form) Hash() string {
	if f.hash == "" {
		sum := md5.Sum([]byte(exportAttributes(f.attrs) + f.content + f.tag + f.postID))
		f.hash = hex.EncodeToString(sum[:])
	}
	return f.hash
}

// ID returns the id attribute.
func (f *Form) ID() string {
	return f.Attribute("id", "")
}

// Content returns the shortcode body.
func (f *Form) Content() string { return f.content }

// Tag returns the shortcode tag.
func (f *Form) Tag() string { return f.tag }

// PostID returns the id of the page the form was rendered on, if any.
func (f *Form) PostID() string { return f.postID }

func (f *Form) HasAttribute(key string) bool {
	return f.attrs.Has(key)
}

// Attribute returns the attribute value or def when it is absent.
func (f *Form) Attribute(key, def string) string {
	return f.attrs.Get(key, def)
}

func (f *Form) SetAttribute(key, value string) *Form {
	f.attrs.Set(key, value)
	return f
}

func (f *Form) UnsetAttribute(key string) *Form {
	f.attrs.Unset(key)
	return f
}

// Attributes returns the attributes in order.
func (f *Form) Attributes() []Field {
	return f.attrs.Pairs()
}

func (f *Form) HasHiddenField(name string) bool {
	return f.hidden.Has(name)
}

// HiddenField returns the hidden field value or def when it is absent.
func (f *Form) HiddenField(name, def string) string {
	return f.hidden.Get(name, def)
}

func (f *Form) SetHiddenField(name, value string) *Form {
	f.hidden.Set(name, value)
	return f
}

func (f *Form) UnsetHiddenField(name string) *Form {
	f.hidden.Unset(name)
	return f
}

// HiddenFields returns the hidden fields in order.
func (f *Form) HiddenFields() []Field {
	return f.hidden.Pairs()
}

// HasSavedData reports whether key was stored with SetSavedData.
func (f *Form) HasSavedData(key string) bool {
	_, ok := f.saved[key]
	return ok
}

// SavedData returns data kept with the form between render and submit.
// It is never written to the HTML output.
//
// On a form loaded from the cache the value comes back in its generic
// shape: strings, bools, int64, uint64, float64, []any and map[string]any.
// Use DecodeSavedData to get the original Go type back.
func (f *Form) SavedData(key string, def any) any {
	v, ok := f.saved[key]
	if !ok {
		return def
	}
	raw, ok := v.(msgpack.RawMessage)
	if !ok {
		return v
	}
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.UseLooseInterfaceDecoding(true)
	var out any
	if err := dec.Decode(&out); err != nil {
		return def
	}
	return out
}

// DecodeSavedData decodes the value stored under key into dst, which must
// be a pointer. It reports false when key is not set. The value goes
// through the cache encoding either way, so the result is the same before
// and after a save and load.
//
//	var ids []int
//	if ok, err := form.DecodeSavedData("ids", &ids); err != nil || !ok { ... }
func (f *Form) DecodeSavedData(key string, dst any) (bool, error) {
	v, ok := f.saved[key]
	if !ok {
		return false, nil
	}
	raw, err := rawSavedValue(v)
	if err != nil {
		return true, fmt.Errorf("niforms: saved data %q: %w", key, err)
	}
	if err := msgpack.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("niforms: saved data %q: %w", key, err)
	}
	return true, nil
}

func (f *Form) SetSavedData(key string, value any) *Form {
	f.saved[key] = value
	return f
}

// AddScript appends markup rendered after the form. The caller supplies the
// surrounding <script> tags.
func (f *Form) AddScript(script string) *Form {
	f.scripts = append(f.scripts, script)
	return f
}

// Scripts returns the queued script markup.
func (f *Form) Scripts() []string {
	out := make([]string, len(f.scripts))
	copy(out, f.scripts)
	return out
}

// Clone returns a copy that can be mutated without touching f. Saved data
// values themselves are shared.
func (f *Form) Clone() *Form {
	saved := make(map[string]any, len(f.saved))
	for k, v := range f.saved {
		saved[k] = v
	}
	return &Form{
		attrs:   f.attrs.Clone(),
		content: f.content,
		tag:     f.tag,
		postID:  f.postID,
		hidden:  f.hidden.Clone(),
		saved:   saved,
		scripts: f.Scripts(),
		hash:    f.hash,
	}
}

// formSnapshot is the persisted shape of a Form.
type formSnapshot struct {
	Kind       string                        `msgpack:"kind"`
	Attributes []Field                       `msgpack:"attributes"`
	Content    string                        `msgpack:"content"`
	Tag        string                        `msgpack:"tag"`
	PostID     string                        `msgpack:"post_id"`
	Hidden     []Field                       `msgpack:"hidden"`
	Saved      map[string]msgpack.RawMessage `msgpack:"saved"`
	Scripts    []string                      `msgpack:"scripts"`
	Hash       string                        `msgpack:"hash"`
}

const snapshotKind = "niforms.form/v1"

// rawSavedValue returns the encoded form of a saved value. Values loaded
// from the cache are kept encoded.
func rawSavedValue(v any) (msgpack.RawMessage, error) {
	if raw, ok := v.(msgpack.RawMessage); ok {
		return raw, nil
	}
	return msgpack.Marshal(v)
}

func (f *Form) snapshot() (formSnapshot, error) {
	saved := make(map[string]msgpack.RawMessage, len(f.saved))
	for k, v := range f.saved {
		raw, err := rawSavedValue(v)
		if err != nil {
			return formSnapshot{}, fmt.Errorf("saved data %q: %w", k, err)
		}
		saved[k] = raw
	}
	return formSnapshot{
		Kind:       snapshotKind,
		Attributes: f.attrs.Pairs(),
		Content:    f.content,
		Tag:        f.tag,
		PostID:     f.postID,
		Hidden:     f.hidden.Pairs(),
		Saved:      saved,
		Scripts:    f.scripts,
		Hash:       f.Hash(),
	}, nil
}

func formFromSnapshot(s formSnapshot) (*Form, bool) {
	if s.Kind != snapshotKind || s.Hash == "" {
		return nil, false
	}
	saved := make(map[string]any, len(s.Saved))
	for k, raw := range s.Saved {
		saved[k] = raw
	}
	return &Form{
		attrs:   NewFields(s.Attributes...),
		content: s.Content,
		tag:     s.Tag,
		postID:  s.PostID,
		hidden:  NewFields(s.Hidden...),
		saved:   saved,
		scripts: s.Scripts,
		hash:    s.Hash,
	}, true
}
