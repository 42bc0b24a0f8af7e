package niforms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pthm/niforms/lib/encoding"
	"github.com/pthm/niforms/lib/formcache"
)

// Purposes the encoder binds sealed values to.
const (
	purposeForm   = "niforms.form"
	purposeNotice = "niforms.notice"
)

// Encoder is an alias for encoding.Encoder for convenience.
type Encoder = encoding.Encoder

// NewEncoder creates a new encoder with the given key.
func NewEncoder(key []byte) (*Encoder, error) {
	return encoding.NewEncoder(key)
}

// FormCache persists forms between render and submit. Each form is stored
// under its hash as a sealed msgpack snapshot.
type FormCache struct {
	store     *formcache.FileStore
	encoder   *Encoder
	sensitive bool
}

// NewFormCache creates a cache in dir. Snapshots are signed with key, or
// encrypted when sensitive is set.
func NewFormCache(dir string, key []byte, sensitive bool) (*FormCache, error) {
	enc, err := NewEncoder(key)
	if err != nil {
		return nil, fmt.Errorf("niforms: failed to create encoder: %w", err)
	}
	return &FormCache{
		store:     formcache.NewFileStore(dir),
		encoder:   enc,
		sensitive: sensitive,
	}, nil
}

// Dir returns the cache directory.
func (c *FormCache) Dir() string {
	return c.store.Dir()
}

// Encoder returns the encoder used to seal snapshots.
func (c *FormCache) Encoder() *Encoder {
	return c.encoder
}

// Save stores the form and returns its hash, which is also the file name.
func (c *FormCache) Save(ctx context.Context, form *Form) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	hash := form.Hash()
	snap, err := form.snapshot()
	if err != nil {
		return "", fmt.Errorf("niforms: failed to serialize form %s: %w", hash, err)
	}
	sealed, err := c.encoder.Encode(purposeForm, snap, c.sensitive)
	if err != nil {
		return "", fmt.Errorf("niforms: failed to serialize form %s: %w", hash, err)
	}
	if err := c.store.Put(hash, []byte(sealed)); err != nil {
		return "", wrapStoreError(err)
	}
	return hash, nil
}

// Load returns the form stored under hash. A missing file, a payload that
// fails verification or one that does not hold a form is an error.
func (c *FormCache) Load(ctx context.Context, hash string) (*Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := c.store.Get(hash)
	if err != nil {
		return nil, wrapStoreError(err)
	}

	var snap formSnapshot
	if err := c.encoder.Decode(purposeForm, string(data), c.sensitive, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptForm, hash, wrapEncodingError(err))
	}
	form, ok := formFromSnapshot(snap)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not hold a form", ErrCorruptForm, hash)
	}
	if form.Hash() != hash {
		return nil, fmt.Errorf("%w: %s holds form %s", ErrCorruptForm, hash, form.Hash())
	}
	return form, nil
}

// Delete drops the cached form.
func (c *FormCache) Delete(ctx context.Context, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrapStoreError(c.store.Delete(hash))
}

// Purge removes cached forms older than maxAge.
func (c *FormCache) Purge(ctx context.Context, maxAge time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.store.Purge(time.Now().Add(-maxAge))
}

// wrapStoreError maps formcache errors onto niforms sentinel errors.
func wrapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, formcache.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrFormNotFound, err)
	case errors.Is(err, formcache.ErrInvalidKey):
		return fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return err
}

// wrapEncodingError wraps encoding package errors with niforms sentinel errors.
func wrapEncodingError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, encoding.ErrInvalidFormat) {
		return ErrInvalidFormat
	}
	if errors.Is(err, encoding.ErrSignatureInvalid) {
		return ErrSignatureInvalid
	}
	if errors.Is(err, encoding.ErrDecryptFailed) {
		return ErrDecryptFailed
	}
	return err
}
