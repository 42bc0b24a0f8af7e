package niforms

import "context"

// NullProcessorCode is the processor used when a form names none.
const NullProcessorCode = "null"

// NullProcessor accepts every submission and does nothing with it. It is a
// starting point for processors that send the data somewhere.
type NullProcessor struct{}

func (NullProcessor) Process(ctx context.Context, submit *FormSubmit, form *Form, log *Logger) (bool, error) {
	return true, nil
}

func (NullProcessor) Success(ctx context.Context, submit *FormSubmit, form *Form, log *Logger) (Response, error) {
	return Bool(true), nil
}
