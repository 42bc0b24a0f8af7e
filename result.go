package niforms

// Response is what a processor's Success phase answers with: a Message, an
// HTML replacement, a Redirect, or a plain Bool.
//
//	return niforms.Message("Thanks!"), nil
//	return niforms.HTML{NewHTML: "<p>Download: <a href=\"/f.pdf\">f.pdf</a></p>"}, nil
//	return niforms.Redirect{URL: "/thanks"}, nil
//	return niforms.Bool(true), nil // use the form's success message
type Response interface {
	isResponse()
}

// Message is shown to the submitter as a popup.
type Message string

// HTML replaces the form markup, optionally with a popup message.
type HTML struct {
	NewHTML      string
	PopupMessage string
}

// Redirect sends the submitter to URL.
type Redirect struct {
	URL string
}

// Bool reports pass or fail; the form's configured success or error
// message is shown.
type Bool bool

func (Message) isResponse()  {}
func (HTML) isResponse()     {}
func (Redirect) isResponse() {}
func (Bool) isResponse()     {}

// ProcessResult is the outcome of one submission, serialized as the AJAX
// response body.
type ProcessResult struct {
	Result      bool   `json:"process_result"`
	Message     string `json:"process_message"`
	ReplaceHTML string `json:"replace_html"`
	RedirectURL string `json:"redirect_url"`

	// Decision is the combined preprocess verdict.
	Decision PreprocessResult `json:"-"`
	// FormID is the id attribute of the submitted form.
	FormID string `json:"-"`
	// AJAX is set when the client asked for a JSON answer.
	AJAX bool `json:"-"`
	// Logs holds the request log entries.
	Logs []LogEntry `json:"-"`
}

// apply maps a Success response onto the result.
func (r *ProcessResult) apply(resp Response, form *Form) {
	switch v := resp.(type) {
	case Message:
		r.Result = true
		r.Message = string(v)
	case HTML:
		r.Result = true
		r.ReplaceHTML = v.NewHTML
		r.Message = v.PopupMessage
	case *HTML:
		r.apply(*v, form)
	case Redirect:
		r.Result = true
		r.RedirectURL = v.URL
	case *Redirect:
		r.apply(*v, form)
	case Bool:
		r.Result = bool(v)
	default:
		r.Result = resp != nil
	}
	if r.Message == "" && r.ReplaceHTML == "" && r.RedirectURL == "" {
		r.Message = r.fallbackMessage(form)
	}
}

func (r *ProcessResult) fallbackMessage(form *Form) string {
	if r.Result {
		return form.HiddenField(FieldSuccessMessage, "")
	}
	return form.HiddenField(FieldErrorMessage, "")
}

// Flash returns the result as a notice for non-AJAX submissions.
func (r *ProcessResult) Flash() Flash {
	level := FlashSuccess
	if !r.Result {
		level = FlashError
	}
	return Flash{Level: level, Message: r.Message, FormID: r.FormID}
}
