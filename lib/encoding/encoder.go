// Package encoding seals niforms state that is stored outside the process.
package encoding

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Sentinel errors returned by Decode and Open.
var (
	ErrInvalidFormat    = errors.New("invalid format")
	ErrSignatureInvalid = errors.New("signature verification failed")
	ErrDecryptFailed    = errors.New("decryption failed")
)

// sigSize is the truncated HMAC length in bytes.
const sigSize = 16

// Encoder seals serialized state so it can leave the process (a cache file,
// a cookie) and come back unmodified. Every value is bound to a purpose:
// a form snapshot cannot be opened as a notice and the other way round.
//
// Two modes are supported:
//   - signed: base64 payload plus truncated HMAC-SHA256, readable but tamper-proof
//   - sensitive: AES-256-GCM, opaque
type Encoder struct {
	macKey []byte
	aead   cipher.AEAD
}

// NewEncoder derives separate signing and encryption keys from key.
// Any key length is accepted.
func NewEncoder(key []byte) (*Encoder, error) {
	block, err := aes.NewCipher(deriveKey(key, "encrypt"))
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Encoder{
		macKey: deriveKey(key, "sign"),
		aead:   aead,
	}, nil
}

func deriveKey(key []byte, label string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("niforms/" + label))
	return mac.Sum(nil)
}

// Encode msgpack-serializes v and seals it for purpose.
func (e *Encoder) Encode(purpose string, v any, sensitive bool) (string, error) {
	packed, err := msgpack.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	return e.Seal(purpose, packed, sensitive)
}

// Decode opens encoded for purpose and msgpack-deserializes it into v.
func (e *Encoder) Decode(purpose, encoded string, sensitive bool, v any) error {
	packed, err := e.Open(purpose, encoded, sensitive)
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(packed, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return nil
}

// Seal signs or encrypts raw bytes.
func (e *Encoder) Seal(purpose string, data []byte, sensitive bool) (string, error) {
	if !sensitive {
		return base64.RawURLEncoding.EncodeToString(data) + "." +
			base64.RawURLEncoding.EncodeToString(e.mac(purpose, data)), nil
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := e.aead.Seal(nonce, nonce, data, []byte(purpose))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open verifies or decrypts a string produced by Seal with the same
// purpose and mode.
func (e *Encoder) Open(purpose, encoded string, sensitive bool) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if !sensitive {
		payload, sig, ok := strings.Cut(encoded, ".")
		if !ok {
			return nil, fmt.Errorf("%w: missing signature", ErrInvalidFormat)
		}
		data, err := base64.RawURLEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		got, err := base64.RawURLEncoding.DecodeString(sig)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		if !hmac.Equal(got, e.mac(purpose, data)) {
			return nil, ErrSignatureInvalid
		}
		return data, nil
	}

	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	n := e.aead.NonceSize()
	if len(sealed) < n {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptFailed)
	}
	plain, err := e.aead.Open(nil, sealed[:n], sealed[n:], []byte(purpose))
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plain, nil
}

// mac signs purpose and data; the NUL separator keeps the two apart.
func (e *Encoder) mac(purpose string, data []byte) []byte {
	m := hmac.New(sha256.New, e.macKey)
	m.Write([]byte(purpose))
	m.Write([]byte{0})
	m.Write(data)
	return m.Sum(nil)[:sigSize]
}
