package niforms

import "context"

// Processor handles a submitted form in two phases. Process decides
// whether the submission passed; on a pass, Success produces the response.
//
// The phases are separate so a preprocess handler can report a silent
// failure: the submitter sees the normal success response while Process
// (and whatever it would have done with the data) is skipped.
//
// Example:
//
//	type Contact struct{ mailer Mailer }
//
//	func (c *Contact) Process(ctx context.Context, s *niforms.FormSubmit, f *niforms.Form, log *niforms.Logger) (bool, error) {
//	    return c.mailer.Send(ctx, s.Post().Value("email", "")) == nil, nil
//	}
//
//	func (c *Contact) Success(ctx context.Context, s *niforms.FormSubmit, f *niforms.Form, log *niforms.Logger) (niforms.Response, error) {
//	    return niforms.Message("Thanks, we will be in touch."), nil
//	}
//
// An error from either phase aborts the request; use a false result for
// ordinary validation failures.
type Processor interface {
	Process(ctx context.Context, submit *FormSubmit, form *Form, log *Logger) (bool, error)
	Success(ctx context.Context, submit *FormSubmit, form *Form, log *Logger) (Response, error)
}

// PreformHandler adjusts a form before it is cached and rendered. It
// receives a copy and must return the form to keep; returning nil drops
// the handler's changes and logs a warning.
type PreformHandler func(ctx context.Context, form *Form, log *Logger) *Form

// PreprocessHandler inspects a submission before the processor runs.
type PreprocessHandler func(ctx context.Context, submit *FormSubmit, form *Form, log *Logger) PreprocessResult

// PostprocessHandler observes the final result. Its effects are its own;
// nothing it does changes the response.
type PostprocessHandler func(ctx context.Context, submit *FormSubmit, form *Form, log *Logger, result *ProcessResult)

// PreprocessResult is a preprocess handler's verdict, and also the
// combined decision over all handlers.
type PreprocessResult int

const (
	// PreprocessContinue lets the submission through.
	PreprocessContinue PreprocessResult = iota
	// PreprocessFail marks the submission failed. Later handlers still run.
	PreprocessFail
	// PreprocessSilentFailure skips Process but still answers with
	// Success. Once any handler returns it the decision is fixed.
	PreprocessSilentFailure
)

func (r PreprocessResult) String() string {
	switch r {
	case PreprocessContinue:
		return "continue"
	case PreprocessFail:
		return "fail"
	case PreprocessSilentFailure:
		return "silent-failure"
	}
	return "unknown"
}
