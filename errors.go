package niforms

import "errors"

// Sentinel errors for form operations.
var (
	ErrFormNotFound      = errors.New("niforms: cached form not found")
	ErrCorruptForm       = errors.New("niforms: cached form is corrupt")
	ErrInvalidHash       = errors.New("niforms: invalid form hash")
	ErrProcessorNotFound = errors.New("niforms: form processor not registered")
	ErrDecryptFailed     = errors.New("niforms: form state decryption failed")
	ErrSignatureInvalid  = errors.New("niforms: form state signature verification failed")
	ErrInvalidFormat     = errors.New("niforms: invalid form state format")
)

// IsNotFound checks if err reports a form that is no longer cached.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFormNotFound)
}

// IsCorrupt checks if err reports unreadable or tampered form state.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorruptForm) ||
		errors.Is(err, ErrDecryptFailed) ||
		errors.Is(err, ErrSignatureInvalid) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsBadRequest checks if err was caused by client input rather than by
// server state.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrInvalidHash) || IsCorrupt(err)
}

// IsProcessorNotFound checks if err reports an unregistered processor code.
func IsProcessorNotFound(err error) bool {
	return errors.Is(err, ErrProcessorNotFound)
}
