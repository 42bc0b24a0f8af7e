package niforms

import (
	"context"
	"sync"
)

// Event names a point in the form lifecycle where handlers run.
type Event string

const (
	EventPreform     Event = "preform"
	EventPreprocess  Event = "preprocess"
	EventPostprocess Event = "postprocess"
)

type namedHandler[H any] struct {
	name string
	fn   H
}

// handlerList keeps handlers in registration order. Adding a name that is
// already present replaces the callable and keeps its position.
type handlerList[H any] struct {
	items []namedHandler[H]
}

func (l *handlerList[H]) add(name string, fn H) {
	for i := range l.items {
		if l.items[i].name == name {
			l.items[i].fn = fn
			return
		}
	}
	l.items = append(l.items, namedHandler[H]{name: name, fn: fn})
}

func (l *handlerList[H]) snapshot() []namedHandler[H] {
	out := make([]namedHandler[H], len(l.items))
	copy(out, l.items)
	return out
}

func (l *handlerList[H]) names() []string {
	out := make([]string, len(l.items))
	for i, item := range l.items {
		out[i] = item.name
	}
	return out
}

// Events holds the handlers for the three lifecycle events. Handlers are
// added once at start-up and never removed.
type Events struct {
	mu          sync.RWMutex
	preform     handlerList[PreformHandler]
	preprocess  handlerList[PreprocessHandler]
	postprocess handlerList[PostprocessHandler]
}

// AddPreform registers a preform handler under name.
func (e *Events) AddPreform(name string, h PreformHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.preform.add(name, h)
}

// AddPreprocess registers a preprocess handler under name.
func (e *Events) AddPreprocess(name string, h PreprocessHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.preprocess.add(name, h)
}

// AddPostprocess registers a postprocess handler under name.
func (e *Events) AddPostprocess(name string, h PostprocessHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.postprocess.add(name, h)
}

// Names returns the handler names for event in run order.
func (e *Events) Names(event Event) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch event {
	case EventPreform:
		return e.preform.names()
	case EventPreprocess:
		return e.preprocess.names()
	case EventPostprocess:
		return e.postprocess.names()
	}
	return nil
}

// RunPreform passes form through every preform handler and returns the
// result.
func (e *Events) RunPreform(ctx context.Context, form *Form, log *Logger) *Form {
	e.mu.RLock()
	handlers := e.preform.snapshot()
	e.mu.RUnlock()

	log.PushStage(string(EventPreform))
	defer log.PopStage()

	for _, h := range handlers {
		log.PushHandler(h.name)
		next := h.fn(ctx, form.Clone(), log)
		if next == nil {
			log.Warning("preform handler did not return a form, its changes were dropped", nil)
		} else {
			form = next
		}
		log.PopHandler()
	}
	return form
}

// RunPreprocess runs every preprocess handler and combines their verdicts.
// A failure does not stop later handlers; a silent failure wins over
// everything else.
func (e *Events) RunPreprocess(ctx context.Context, submit *FormSubmit, form *Form, log *Logger) PreprocessResult {
	e.mu.RLock()
	handlers := e.preprocess.snapshot()
	e.mu.RUnlock()

	log.PushStage(string(EventPreprocess))
	defer log.PopStage()

	decision := PreprocessContinue
	for _, h := range handlers {
		log.PushHandler(h.name)
		result := h.fn(ctx, submit, form, log)
		switch result {
		case PreprocessSilentFailure:
			log.Info("preprocess handler reported a silent failure", nil)
			decision = PreprocessSilentFailure
		case PreprocessFail:
			log.Info("preprocess handler failed the submission", nil)
			if decision != PreprocessSilentFailure {
				decision = PreprocessFail
			}
		}
		log.PopHandler()
	}
	return decision
}

// RunPostprocess notifies every postprocess handler of result.
func (e *Events) RunPostprocess(ctx context.Context, submit *FormSubmit, form *Form, log *Logger, result *ProcessResult) {
	e.mu.RLock()
	handlers := e.postprocess.snapshot()
	e.mu.RUnlock()

	log.PushStage(string(EventPostprocess))
	defer log.PopStage()

	for _, h := range handlers {
		log.PushHandler(h.name)
		h.fn(ctx, submit, form, log, result)
		log.PopHandler()
	}
}
