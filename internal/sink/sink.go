// Package sink delivers finished renders to a preview surface and to
// persistent storage.
package sink

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"sync"
	"syscall"

	"photofilter/internal/engine"
	"photofilter/internal/logger"
)

const component = "OutputSink"

// Previewer shows an image. It must not block for long and cannot fail.
type Previewer interface {
	Preview(img image.Image)
}

// Store persists a result and returns where it ended up.
type Store interface {
	Save(ctx context.Context, result *engine.RenderResult) (string, error)
}

// PersistFailure is what onFailure receives. Cause is meant for the user.
type PersistFailure struct {
	Cause string
	Err   error
}

func (f *PersistFailure) Error() string {
	return "save failed: " + f.Cause
}

func (f *PersistFailure) Unwrap() error {
	return f.Err
}

// Sink pairs a previewer with a store.
type Sink struct {
	previewer Previewer
	store     Store
	log       logger.Logger
	pending   sync.WaitGroup
}

func New(previewer Previewer, store Store, log logger.Logger) *Sink {
	if log == nil {
		log = logger.Nop()
	}
	return &Sink{previewer: previewer, store: store, log: log}
}

// Preview hands the result to the previewer synchronously.
func (s *Sink) Preview(result *engine.RenderResult) {
	if result == nil || s.previewer == nil {
		return
	}
	s.previewer.Preview(result.Image)
}

// Persist saves result in the background. Exactly one of onSuccess and
// onFailure is called, once, from the background goroutine. There is no
// retry and no cancellation; the result itself is never modified.
func (s *Sink) Persist(result *engine.RenderResult, onSuccess func(location string), onFailure func(err error)) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		location, err := s.save(result)
		if err != nil {
			failure := describe(err)
			s.log.Error(component, err, map[string]interface{}{"cause": failure.Cause})
			if onFailure != nil {
				onFailure(failure)
			}
			return
		}

		s.log.Info(component, "result persisted", map[string]interface{}{
			"result":   result.ID.String(),
			"location": location,
		})
		if onSuccess != nil {
			onSuccess(location)
		}
	}()
}

func (s *Sink) save(result *engine.RenderResult) (location string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("store panicked: %v", r)
		}
	}()

	if result == nil || result.Image == nil {
		return "", errors.New("nothing to save")
	}
	if s.store == nil {
		return "", errors.New("no storage configured")
	}
	return s.store.Save(context.Background(), result)
}

// Wait blocks until every Persist call has delivered its callback.
func (s *Sink) Wait() {
	s.pending.Wait()
}

func describe(err error) *PersistFailure {
	var failure *PersistFailure
	if errors.As(err, &failure) {
		return failure
	}

	cause := err.Error()
	switch {
	case errors.Is(err, fs.ErrPermission):
		cause = "permission denied"
	case errors.Is(err, syscall.ENOSPC), errors.Is(err, syscall.EROFS):
		cause = "storage unavailable"
	case errors.Is(err, fs.ErrNotExist):
		cause = "destination does not exist"
	}
	return &PersistFailure{Cause: cause, Err: err}
}
