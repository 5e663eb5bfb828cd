package page

// Allocator approves the memory a bulk-load session grows by: item
// buffers, parent-reference chunks, separator key copies. Reserve is
// always called before the corresponding allocation happens, so an
// error means nothing was allocated and prior state is untouched.
type Allocator interface {
	Reserve(size int) error
}

// Heap is the default allocator: ordinary Go allocation, which never
// refuses.
type Heap struct{}

func (Heap) Reserve(int) error { return nil }
