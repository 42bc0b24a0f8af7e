package niforms

// Field is a single ordered key/value pair.
type Field struct {
	Key   string `msgpack:"k" json:"key"`
	Value string `msgpack:"v" json:"value"`
}

// Fields is an insertion-ordered string mapping. Setting an existing key
// keeps its position; unsetting and setting again moves it to the end.
type Fields struct {
	keys   []string
	values map[string]string
}

// NewFields builds a Fields from pairs, later duplicates win.
func NewFields(pairs ...Field) *Fields {
	f := &Fields{values: make(map[string]string, len(pairs))}
	for _, p := range pairs {
		f.Set(p.Key, p.Value)
	}
	return f
}

// Has reports whether key is present.
func (f *Fields) Has(key string) bool {
	_, ok := f.values[key]
	return ok
}

// Lookup returns the value for key and whether it was present.
func (f *Fields) Lookup(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Get returns the value for key or def when absent.
func (f *Fields) Get(key, def string) string {
	if v, ok := f.values[key]; ok {
		return v
	}
	return def
}

// Set stores value under key.
func (f *Fields) Set(key, value string) {
	if f.values == nil {
		f.values = make(map[string]string)
	}
	if _, exists := f.values[key]; !exists {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Unset removes key if present.
func (f *Fields) Unset(key string) {
	if _, exists := f.values[key]; !exists {
		return
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i:i], f.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries.
func (f *Fields) Len() int {
	return len(f.keys)
}

// Keys returns a copy of the keys in order.
func (f *Fields) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Pairs returns the entries in order.
func (f *Fields) Pairs() []Field {
	out := make([]Field, 0, len(f.keys))
	for _, k := range f.keys {
		out = append(out, Field{Key: k, Value: f.values[k]})
	}
	return out
}

// Map returns an unordered copy.
func (f *Fields) Map() map[string]string {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy.
func (f *Fields) Clone() *Fields {
	return NewFields(f.Pairs()...)
}
