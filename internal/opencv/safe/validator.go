package safe

import (
	"errors"
	"fmt"
)

// maxSide bounds either dimension of a Mat the filters will allocate.
const maxSide = 32768

var (
	ErrUnusableMat = errors.New("unusable Mat")
	ErrDimensions  = errors.New("invalid dimensions")
	ErrOutOfBounds = errors.New("out of bounds")
)

func ValidateMatForOperation(mat *Mat, operation string) error {
	switch {
	case mat == nil:
		return fmt.Errorf("%s: %w: nil", operation, ErrUnusableMat)
	case !mat.IsValid():
		return fmt.Errorf("%s: %w: closed", operation, ErrUnusableMat)
	case mat.Empty():
		return fmt.Errorf("%s: %w: empty", operation, ErrUnusableMat)
	}
	return nil
}

func ValidateDimensions(width, height int, operation string) error {
	if width <= 0 || height <= 0 || width > maxSide || height > maxSide {
		return fmt.Errorf("%s: %w %dx%d", operation, ErrDimensions, width, height)
	}
	return nil
}

func ValidateCoordinates(row, col, rows, cols int, operation string) error {
	if row < 0 || row >= rows || col < 0 || col >= cols {
		return fmt.Errorf("%s: %w: (%d,%d) in %dx%d", operation, ErrOutOfBounds, row, col, cols, rows)
	}
	return nil
}

func ValidateChannel(channel, channels int, operation string) error {
	if channel < 0 || channel >= channels {
		return fmt.Errorf("%s: %w: channel %d of %d", operation, ErrOutOfBounds, channel, channels)
	}
	return nil
}
