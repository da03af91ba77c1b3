package engine

import (
	"errors"
	"fmt"

	"photofilter/internal/filter"
)

// ErrNoInputBound means Render was called before any image was bound.
var ErrNoInputBound = errors.New("no input image bound")

// ErrRenderUnavailable matches every RenderUnavailableError.
var ErrRenderUnavailable = errors.New("render unavailable")

// RenderUnavailableError reports that the filter produced no output for the
// current values. The previous result is kept; callers may retry after
// changing parameters.
type RenderUnavailableError struct {
	Kind    filter.Kind
	Applied map[filter.Parameter]any
	Reason  string
	Err     error
}

func (e *RenderUnavailableError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, ErrRenderUnavailable)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RenderUnavailableError) Is(target error) bool {
	return target == ErrRenderUnavailable
}

func (e *RenderUnavailableError) Unwrap() error {
	return e.Err
}
