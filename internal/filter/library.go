package filter

import "image"

// Handle is one filter object of an underlying image library. Its accepted
// inputs are discovered at runtime through InputKeys; nothing else in the
// module hardcodes which parameters a kind honors.
type Handle interface {
	Kind() Kind
	// InputKeys lists every key the handle accepts, including KeyImage.
	InputKeys() []string
	// SetValue binds an input. Parameter keys take numbers, KeyImage an image.Image.
	SetValue(key string, value any) error
	Value(key string) (any, bool)
	// OutputImage pulls the result through ec. It reports false while inputs
	// are missing or when the current values cannot produce an image.
	OutputImage(ec Context) (image.Image, bool)
}

// Context is a reusable execution context owned by whoever renders.
type Context interface {
	Library() string
	// Rasterize copies img into a freshly allocated RGBA raster.
	Rasterize(img image.Image) (*image.RGBA, error)
	Close() error
}

// Library builds handles and execution contexts.
type Library interface {
	Name() string
	NewHandle(kind Kind) (Handle, error)
	NewContext() Context
}
