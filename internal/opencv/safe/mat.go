package safe

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// Mat wraps a gocv.Mat so that double closes and use-after-close turn into
// errors instead of crashes inside OpenCV.
type Mat struct {
	mat     gocv.Mat
	isValid int32
	mu      sync.RWMutex
	id      uint64
	tag     string
}

var nextMatID uint64

func NewMat(rows, cols int, matType gocv.MatType) (*Mat, error) {
	return NewTaggedMat(rows, cols, matType, "")
}

// NewTaggedMat allocates a zeroed Mat; tag shows up in pool statistics.
func NewTaggedMat(rows, cols int, matType gocv.MatType, tag string) (*Mat, error) {
	if err := ValidateDimensions(cols, rows, "allocate"); err != nil {
		return nil, err
	}

	mat := gocv.NewMatWithSize(rows, cols, matType)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("failed to create Mat with size %dx%d", cols, rows)
	}

	return wrap(mat, tag), nil
}

// NewMatFromMat clones src; the caller keeps ownership of src.
func NewMatFromMat(src gocv.Mat, tag string) (*Mat, error) {
	if src.Empty() {
		return nil, fmt.Errorf("source Mat is empty")
	}

	cloned := src.Clone()
	if cloned.Empty() {
		cloned.Close()
		return nil, fmt.Errorf("failed to clone Mat")
	}

	return wrap(cloned, tag), nil
}

func wrap(mat gocv.Mat, tag string) *Mat {
	sm := &Mat{
		mat:     mat,
		isValid: 1,
		id:      atomic.AddUint64(&nextMatID, 1),
		tag:     tag,
	}
	runtime.SetFinalizer(sm, (*Mat).finalize)
	return sm
}

func (sm *Mat) IsValid() bool {
	return atomic.LoadInt32(&sm.isValid) == 1
}

func (sm *Mat) Empty() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return !sm.IsValid() || sm.mat.Empty()
}

func (sm *Mat) Rows() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Rows()
}

func (sm *Mat) Cols() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Cols()
}

func (sm *Mat) Channels() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Channels()
}

func (sm *Mat) Type() gocv.MatType {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return gocv.MatTypeCV8UC1
	}
	return sm.mat.Type()
}

func (sm *Mat) Tag() string {
	return sm.tag
}

func (sm *Mat) ID() uint64 {
	return sm.id
}

// Size is the pixel payload in bytes.
func (sm *Mat) Size() int64 {
	return int64(sm.Rows()*sm.Cols()) * int64(ElemSize(sm.Type()))
}

func (sm *Mat) Clone() (*Mat, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return nil, fmt.Errorf("cannot clone invalid Mat")
	}
	return NewMatFromMat(sm.mat, sm.tag+"_clone")
}

func (sm *Mat) GetUCharAt3(row, col, channel int) (uint8, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if err := sm.checkAccess(row, col, channel); err != nil {
		return 0, err
	}
	return sm.mat.GetUCharAt3(row, col, channel), nil
}

func (sm *Mat) SetUCharAt3(row, col, channel int, value uint8) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if err := sm.checkAccess(row, col, channel); err != nil {
		return err
	}
	sm.mat.SetUCharAt3(row, col, channel, value)
	return nil
}

func (sm *Mat) checkAccess(row, col, channel int) error {
	if !sm.IsValid() {
		return fmt.Errorf("Mat is invalid")
	}
	if err := ValidateCoordinates(row, col, sm.mat.Rows(), sm.mat.Cols(), "pixel access"); err != nil {
		return err
	}
	return ValidateChannel(channel, sm.mat.Channels(), "pixel access")
}

// GetMat exposes the underlying Mat for gocv calls. The result must not be
// closed by the caller.
func (sm *Mat) GetMat() gocv.Mat {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.mat
}

func (sm *Mat) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if atomic.CompareAndSwapInt32(&sm.isValid, 1, 0) {
		if !sm.mat.Empty() {
			sm.mat.Close()
		}
		runtime.SetFinalizer(sm, nil)
	}
}

func (sm *Mat) finalize() {
	if atomic.LoadInt32(&sm.isValid) == 1 {
		sm.Close()
	}
}

// ElemSize is the number of bytes per pixel for the 8U/16U/32F types used here.
func ElemSize(matType gocv.MatType) int {
	switch matType {
	case gocv.MatTypeCV8UC1:
		return 1
	case gocv.MatTypeCV8UC3:
		return 3
	case gocv.MatTypeCV8UC4:
		return 4
	case gocv.MatTypeCV16SC1, gocv.MatTypeCV16UC1:
		return 2
	case gocv.MatTypeCV16SC3, gocv.MatTypeCV16UC3:
		return 6
	case gocv.MatTypeCV32FC1:
		return 4
	case gocv.MatTypeCV32FC3:
		return 12
	default:
		return 1
	}
}
