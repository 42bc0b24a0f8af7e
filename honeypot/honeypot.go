// Package honeypot adds a bot trap to niforms. Each rendered form asks the
// server for a one-time token from JavaScript; submissions without the
// matching token are answered as if they succeeded but never reach the
// processor.
package honeypot

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pthm/niforms"
)

const (
	// HandlerName is the name of the preform and preprocess handlers.
	HandlerName = "honeypot"
	// ActionToken is the AJAX action that issues tokens.
	ActionToken = "niform_honeypot_token"
	// FieldToken is the hidden field the token is posted back in.
	FieldToken = "_ni-form-honeypot-token"
	// FieldID is the hidden field carrying the browser generated id.
	FieldID = "_ni-form-honeypot-id"
	// AttrDisable turns the honeypot off for one form.
	AttrDisable = "disable-honeypot"
	// SessionCookie holds the visitor's session id.
	SessionCookie = "niforms_session"
)

// Honeypot issues and checks tokens.
type Honeypot struct {
	reg    *niforms.Registry
	store  Store
	logger *zap.Logger
}

// Register creates a honeypot backed by store and installs its handlers and
// token action on reg.
func Register(reg *niforms.Registry, store Store) *Honeypot {
	h := &Honeypot{
		reg:    reg,
		store:  store,
		logger: reg.Logger().Named("honeypot"),
	}
	reg.AddPreform(HandlerName, h.Preform)
	reg.AddPreprocess(HandlerName, h.Preprocess)
	reg.AddAction(ActionToken, http.HandlerFunc(h.ServeToken))
	return h
}

// Store returns the token store.
func (h *Honeypot) Store() Store {
	return h.store
}

// Preform queues the token request script unless the form sets
// disable-honeypot. The attribute is always removed.
func (h *Honeypot) Preform(ctx context.Context, form *niforms.Form, log *niforms.Logger) *niforms.Form {
	if !niforms.Truthy(form.Attribute(AttrDisable, "")) {
		script, err := h.script(form.ID())
		if err != nil {
			log.Error("failed to build honeypot script", map[string]any{"error": err.Error()})
		} else {
			form.AddScript(fmt.Sprintf(`<script src="%s"></script>`, niforms.EscapeEntities(h.reg.AssetURL(niforms.AssetFormHoneypot))))
			form.AddScript(script)
		}
	}
	form.UnsetAttribute(AttrDisable)
	return form
}

func (h *Honeypot) script(formID string) (string, error) {
	args := make([]any, 0, 4)
	for _, v := range []string{formID, h.reg.ActionURL(ActionToken), FieldToken, FieldID} {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		args = append(args, b)
	}
	return fmt.Sprintf(`<script>
    document.addEventListener("DOMContentLoaded", function () {
        var formId = %s;
        var tokenUrl = %s;
        var fieldName = %s;
        var honeypotIdFieldName = %s;

        var honeypot = new NIForm.Honeypot(formId, tokenUrl, fieldName, honeypotIdFieldName);
    });
</script>`, args...), nil
}

// ServeToken answers POST {formId, honeypotId} with {"token": "..."} and
// remembers the token for the visitor's session.
func (h *Honeypot) ServeToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	post := niforms.NewFormSubmit(r, true).Post()
	key := Key{
		Session:    sessionID(w, r),
		FormID:     post.Value("formId", ""),
		HoneypotID: post.Value("honeypotId", ""),
	}
	if key.FormID == "" || key.HoneypotID == "" {
		http.Error(w, "formId and honeypotId are required", http.StatusBadRequest)
		return
	}

	token := NewToken()
	if err := h.store.Save(r.Context(), key, token); err != nil {
		h.logger.Error("failed to save token", zap.Error(err), zap.String("form", key.FormID))
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(map[string]string{"token": token}); err != nil {
		h.logger.Warn("failed to write token", zap.Error(err))
	}
}

// Preprocess compares the posted token with the stored one. A match
// consumes the token; anything else is a silent failure.
//
// The read and the delete are separate store calls, so two concurrent
// submits with the same token can both pass.
func (h *Honeypot) Preprocess(ctx context.Context, submit *niforms.FormSubmit, form *niforms.Form, log *niforms.Logger) niforms.PreprocessResult {
	posted := submit.Post().Value(FieldToken, "")
	if posted == "" {
		log.Notice("honeypot token missing", map[string]any{"form": form.ID()})
		return niforms.PreprocessSilentFailure
	}

	session := ""
	if c, err := submit.Request().Cookie(SessionCookie); err == nil {
		session = c.Value
	}
	key := Key{
		Session:    session,
		FormID:     form.ID(),
		HoneypotID: submit.Post().Value(FieldID, ""),
	}

	stored, err := h.store.Token(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrTokenNotFound) {
			log.Error("failed to read honeypot token", map[string]any{"form": form.ID(), "error": err.Error()})
		} else {
			log.Notice("no honeypot token issued", map[string]any{"form": form.ID()})
		}
		return niforms.PreprocessSilentFailure
	}
	if stored != posted {
		log.Notice("honeypot token mismatch", map[string]any{"form": form.ID()})
		return niforms.PreprocessSilentFailure
	}

	if err := h.store.Delete(ctx, key); err != nil {
		log.Warning("failed to delete honeypot token", map[string]any{"form": form.ID(), "error": err.Error()})
	}
	return niforms.PreprocessContinue
}

// NewToken returns a random 32 character hex token.
func NewToken() string {
	sum := md5.Sum([]byte(uuid.NewString()))
	return hex.EncodeToString(sum[:])
}

// sessionID returns the visitor's session id, issuing a cookie when the
// request has none.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
