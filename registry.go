package niforms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/pthm/niforms/lib/shortcode"
)

// Hidden field names written into every rendered form.
const (
	FieldFormID         = "_form-id"
	FieldFormProcessor  = "_form-processor"
	FieldFormHash       = "_form-hash"
	FieldSuccessMessage = "_success-message"
	FieldErrorMessage   = "_error-message"
	FieldSubmitStyle    = "_submit-style"
)

// Shortcode attributes consumed by the registry; they never reach the
// rendered <form> tag.
const (
	AttrFormProcessor  = "form-processor"
	AttrProcessor      = "processor"
	AttrSuccessMessage = "success-message"
	AttrErrorMessage   = "error-message"
	AttrDisableAJAX    = "disable-ajax"
)

const (
	// DefaultTag is the shortcode tag registered by NewRegistry.
	DefaultTag = "ni-form"
	// ActionProcess is the AJAX action that submits a form.
	ActionProcess = "niform_process"

	defaultAjaxPath   = "/niforms/ajax"
	defaultAssetsPath = "/niforms/assets/"
	defaultFailure    = "Form submit failed."
	submitStyleAJAX   = "ajax"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the zap logger request logs are mirrored to.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithAjaxPath sets the path the AJAX endpoint is mounted at.
// Defaults to "/niforms/ajax".
func WithAjaxPath(path string) Option {
	return func(r *Registry) {
		r.ajaxPath = path
	}
}

// WithAssetsPath sets the URL prefix the scripts are served from.
// Defaults to "/niforms/assets/".
func WithAssetsPath(path string) Option {
	return func(r *Registry) {
		if !strings.HasSuffix(path, "/") {
			path += "/"
		}
		r.assetsPath = path
	}
}

// WithSanitizer filters processor messages and replacement HTML through
// policy before they are sent to the browser.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(r *Registry) {
		r.policy = policy
	}
}

// WithStripSlashes controls whether posted values are de-slashed.
// Enabled by default.
func WithStripSlashes(enabled bool) Option {
	return func(r *Registry) {
		r.stripSlashes = enabled
	}
}

// Registry is the form system: it owns the processors, the lifecycle
// handlers, the form cache and the AJAX actions.
type Registry struct {
	*Events

	mu             sync.RWMutex
	processors     map[string]Processor
	actions        map[string]http.Handler
	tags           map[string]struct{}
	defaultSuccess string
	defaultFailure string

	cache        *FormCache
	logger       *zap.Logger
	policy       *bluemonday.Policy
	ajaxPath     string
	assetsPath   string
	stripSlashes bool

	// OnError is called when a submission cannot be processed.
	// Customize this to handle errors appropriately for your application.
	OnError func(http.ResponseWriter, *http.Request, error)
}

// NewRegistry creates a registry backed by cache. The null processor, the
// ni-form shortcode tag and the niform_process action are registered.
func NewRegistry(cache *FormCache, opts ...Option) *Registry {
	reg := &Registry{
		Events:         &Events{},
		processors:     make(map[string]Processor),
		actions:        make(map[string]http.Handler),
		tags:           make(map[string]struct{}),
		defaultFailure: defaultFailure,
		cache:          cache,
		logger:         zap.NewNop(),
		ajaxPath:       defaultAjaxPath,
		assetsPath:     defaultAssetsPath,
		stripSlashes:   true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(reg)
		}
	}

	reg.RegisterProcessor(NullProcessorCode, NullProcessor{})
	reg.AddShortcode(DefaultTag)
	reg.AddAction(ActionProcess, http.HandlerFunc(reg.serveProcess))

	// Default error handler
	reg.OnError = func(w http.ResponseWriter, r *http.Request, err error) {
		reg.logger.Warn("form submission failed", zap.Error(err), zap.String("path", r.URL.Path))
		switch {
		case IsNotFound(err):
			http.Error(w, "Form expired, reload the page and try again", http.StatusGone)
		case IsBadRequest(err):
			http.Error(w, "Bad request", http.StatusBadRequest)
		default:
			http.Error(w, "Internal error", http.StatusInternalServerError)
		}
	}

	return reg
}

// Logger returns the zap logger.
func (reg *Registry) Logger() *zap.Logger {
	return reg.logger
}

// Cache returns the form cache.
func (reg *Registry) Cache() *FormCache {
	return reg.cache
}

// RegisterProcessor makes p available to forms under code. Registering a
// code again replaces the processor.
func (reg *Registry) RegisterProcessor(code string, p Processor) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.processors[code] = p
}

// Processor returns the processor registered under code.
func (reg *Registry) Processor(code string) (Processor, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	p, ok := reg.processors[code]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProcessorNotFound, code)
	}
	return p, nil
}

// HasProcessor reports whether code is registered.
func (reg *Registry) HasProcessor(code string) bool {
	_, err := reg.Processor(code)
	return err == nil
}

// Processors returns the registered codes, sorted.
func (reg *Registry) Processors() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	codes := make([]string, 0, len(reg.processors))
	for code := range reg.processors {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (reg *Registry) DefaultSuccessMessage() string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.defaultSuccess
}

// SetDefaultSuccessMessage sets the message used when a form has no
// success-message attribute.
func (reg *Registry) SetDefaultSuccessMessage(msg string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.defaultSuccess = msg
}

func (reg *Registry) DefaultFailureMessage() string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.defaultFailure
}

// SetDefaultFailureMessage sets the message used when a form has no
// error-message attribute.
func (reg *Registry) SetDefaultFailureMessage(msg string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.defaultFailure = msg
}

// AddShortcode registers an additional tag that RenderContent expands.
func (reg *Registry) AddShortcode(tag string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.tags[tag] = struct{}{}
}

func (reg *Registry) shortcodeTags() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	tags := make([]string, 0, len(reg.tags))
	for tag := range reg.tags {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// AddAction registers an AJAX action served by Handler.
func (reg *Registry) AddAction(name string, h http.Handler) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.actions[name] = h
}

// ActionURL returns the URL an AJAX action is reached at.
func (reg *Registry) ActionURL(action string) string {
	return reg.ajaxPath + "?" + url.Values{"action": {action}}.Encode()
}

// AjaxPath returns the path the AJAX endpoint is mounted at.
func (reg *Registry) AjaxPath() string {
	return reg.ajaxPath
}

// AssetsPath returns the URL prefix the scripts are served from.
func (reg *Registry) AssetsPath() string {
	return reg.assetsPath
}

// AssetURL returns the URL of an embedded script.
func (reg *Registry) AssetURL(name string) string {
	return reg.assetsPath + name
}

// Shortcode renders one form from shortcode input: it resolves the
// processor, moves the status messages into hidden fields, runs the
// preform handlers, caches the form and returns its markup.
func (reg *Registry) Shortcode(ctx context.Context, attrs []Field, content, tag, postID string) (string, error) {
	html, _, err := reg.renderForm(ctx, attrs, content, tag, postID)
	return html, err
}

// renderForm does the work of Shortcode and also returns the form as it
// was cached.
func (reg *Registry) renderForm(ctx context.Context, attrs []Field, content, tag, postID string) (string, *Form, error) {
	log := NewLogger(reg.logger)
	log.PushStage("shortcode")
	defer log.PopStage()

	form := NewForm(attrs, content, tag, postID)

	code := form.Attribute(AttrFormProcessor, "")
	if code == "" {
		code = form.Attribute(AttrProcessor, "")
	}
	switch {
	case code == "":
		log.Warning(`"form-processor" attribute missing, using "null" processor`, map[string]any{"form": form.ID()})
		code = NullProcessorCode
	case !reg.HasProcessor(code):
		log.Warning(`form processor not registered, using "null" processor`, map[string]any{"form": form.ID(), "processor": code})
		code = NullProcessorCode
	}
	form.UnsetAttribute(AttrFormProcessor).UnsetAttribute(AttrProcessor)

	success := form.Attribute(AttrSuccessMessage, "")
	if success == "" {
		success = reg.DefaultSuccessMessage()
	}
	failure := form.Attribute(AttrErrorMessage, "")
	if failure == "" {
		failure = reg.DefaultFailureMessage()
	}
	form.UnsetAttribute(AttrSuccessMessage).UnsetAttribute(AttrErrorMessage)

	disableAJAX := Truthy(form.Attribute(AttrDisableAJAX, ""))
	form.UnsetAttribute(AttrDisableAJAX)

	form.SetHiddenField(FieldFormID, form.ID())
	form.SetHiddenField(FieldFormProcessor, code)
	if success != "" {
		form.SetHiddenField(FieldSuccessMessage, success)
	}
	if failure != "" {
		form.SetHiddenField(FieldErrorMessage, failure)
	}

	form = reg.RunPreform(ctx, form, log)

	form.SetHiddenField(FieldFormHash, form.Hash())
	if _, err := reg.cache.Save(ctx, form); err != nil {
		log.Error("failed to cache form", map[string]any{"form": form.ID(), "error": err.Error()})
		return "", nil, err
	}
	cached := form.Clone()

	if !disableAJAX {
		script, err := reg.ajaxScript(form.ID())
		if err != nil {
			return "", nil, err
		}
		form.AddScript(fmt.Sprintf(`<script src="%s"></script>`, EscapeEntities(reg.AssetURL(AssetForm))))
		form.AddScript(script)
	}

	var notice string
	if flash, ok := reg.Notice(RequestFromContext(ctx), form.ID()); ok {
		notice = RenderNotice(reg.filterNotice(flash))
	}
	return notice + form.String(), cached, nil
}

func (reg *Registry) ajaxScript(formID string) (string, error) {
	id, err := json.Marshal(formID)
	if err != nil {
		return "", err
	}
	action, err := json.Marshal(reg.ActionURL(ActionProcess))
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(map[string]string{FieldSubmitStyle: submitStyleAJAX})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`<script>
    document.addEventListener("DOMContentLoaded", function () {
        var formId = %s;
        var actionUrl = %s;
        var formData = %s;

        var form = new NIForm.Form(formId);

        form.setupAjaxForm(actionUrl, formData);
    });
</script>`, id, action, data), nil
}

// RenderContent expands every registered shortcode in a page body.
func (reg *Registry) RenderContent(ctx context.Context, content, postID string) (string, error) {
	return shortcode.Expand(content, reg.shortcodeTags(), func(sc shortcode.Shortcode) (string, error) {
		attrs := make([]Field, 0, len(sc.Attrs))
		for _, a := range sc.Attrs {
			attrs = append(attrs, Field{Key: a.Name, Value: a.Value})
		}
		return reg.Shortcode(ctx, attrs, sc.Content, sc.Tag, postID)
	})
}

// Process runs a submission through the lifecycle: load the cached form,
// run the preprocess handlers, call the processor and the postprocess
// handlers. A missing or unreadable form and an unregistered processor
// are errors.
func (reg *Registry) Process(ctx context.Context, r *http.Request) (*ProcessResult, error) {
	submit := NewFormSubmit(r, reg.stripSlashes)
	log := NewLogger(reg.logger)
	log.PushStage("process")
	defer log.PopStage()

	if err := submit.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	hash := submit.Post().Value(FieldFormHash, "")
	if hash == "" {
		return nil, fmt.Errorf("%w: %s missing from submission", ErrInvalidHash, FieldFormHash)
	}
	form, err := reg.cache.Load(ctx, hash)
	if err != nil {
		log.Error("failed to load cached form", map[string]any{"hash": hash, "error": err.Error()})
		return nil, err
	}

	code := form.HiddenField(FieldFormProcessor, NullProcessorCode)
	proc, err := reg.Processor(code)
	if err != nil {
		log.Critical("form processor not registered", map[string]any{"processor": code})
		return nil, err
	}

	result := &ProcessResult{
		FormID: form.ID(),
		AJAX:   submit.Post().Value(FieldSubmitStyle, "") == submitStyleAJAX || IsAJAX(r),
	}
	result.Decision = reg.RunPreprocess(ctx, submit, form, log)

	log.PushHandler(code)
	switch result.Decision {
	case PreprocessContinue:
		ok, err := proc.Process(ctx, submit, form, log)
		if err != nil {
			log.PopHandler()
			return nil, fmt.Errorf("niforms: processor %q: %w", code, err)
		}
		if !ok {
			result.apply(Bool(false), form)
			break
		}
		fallthrough
	case PreprocessSilentFailure:
		resp, err := proc.Success(ctx, submit, form, log)
		if err != nil {
			log.PopHandler()
			return nil, fmt.Errorf("niforms: processor %q: %w", code, err)
		}
		if resp == nil {
			log.Warning("processor returned no response, treating the submission as failed", map[string]any{"processor": code})
		}
		result.apply(resp, form)
	case PreprocessFail:
		result.apply(Bool(false), form)
	}
	log.PopHandler()

	if reg.policy != nil {
		result.Message = reg.policy.Sanitize(result.Message)
		result.ReplaceHTML = reg.policy.Sanitize(result.ReplaceHTML)
	}

	reg.RunPostprocess(ctx, submit, form, log, result)
	result.Logs = log.Logs()
	return result, nil
}

// Truthy interprets a shortcode attribute as a boolean the way the CMS
// does: empty and "0" are false, anything else true. "false", "no" and
// "off" are also accepted as false.
func Truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}
