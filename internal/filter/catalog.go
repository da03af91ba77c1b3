package filter

// Catalog enumerates the supported kinds and instantiates them through
// the configured library.
type Catalog struct {
	library Library
}

func NewCatalog(library Library) *Catalog {
	return &Catalog{library: library}
}

func (c *Catalog) Library() string {
	return c.library.Name()
}

// Kinds returns the menu order. It never changes.
func (c *Catalog) Kinds() []Kind {
	return Kinds()
}

func (c *Catalog) Instantiate(kind Kind) (Handle, error) {
	if !kind.Valid() {
		return nil, &UnsupportedKindError{Kind: kind}
	}
	return c.library.NewHandle(kind)
}

// NewContext creates an execution context matching the library's handles.
func (c *Catalog) NewContext() Context {
	return c.library.NewContext()
}
