package page

import (
	"unsafe"

	"github.com/zeebo/errs"
)

// Error is the class that contains all the errors from this package.
var Error = errs.Class("page")

// itemSize is the accounting cost of one item index slot.
const itemSize = int(unsafe.Sizeof(item{}))

// item locates one key/value pair inside an Items buffer. column
// items have a zero key length.
type item struct {
	off  uint32
	klen uint32
	vlen uint32
}

// Items is an owned, append-only accumulation of leaf items. Every
// key and value is copied into a single buffer so that the whole
// accumulation can change owners with one move.
type Items struct {
	buf []byte
	idx []item
}

// Count returns the number of accumulated items.
func (it *Items) Count() int { return len(it.idx) }

// Key returns the key bytes of item i. The slice aliases the internal
// buffer: it is valid only until the Items change owners.
func (it *Items) Key(i int) []byte {
	ent := it.idx[i]
	return it.buf[ent.off : ent.off+ent.klen]
}

// Value returns the value bytes of item i, under the same aliasing
// rule as Key.
func (it *Items) Value(i int) []byte {
	ent := it.idx[i]
	start := ent.off + ent.klen
	return it.buf[start : start+ent.vlen]
}

// Append copies key and value into the accumulation. The allocator is
// asked for the memory first, so a refused reservation leaves the
// accumulation exactly as it was.
func (it *Items) Append(a Allocator, key, value []byte) error {
	if err := a.Reserve(len(key) + len(value) + itemSize); err != nil {
		return Error.Wrap(err)
	}

	off := uint32(len(it.buf))
	it.buf = append(it.buf, key...)
	it.buf = append(it.buf, value...)
	it.idx = append(it.idx, item{
		off:  off,
		klen: uint32(len(key)),
		vlen: uint32(len(value)),
	})
	return nil
}

// Unappend releases the most recently appended item, restoring the
// accumulation to its state before the last Append.
func (it *Items) Unappend() {
	ent := it.idx[len(it.idx)-1]
	it.idx = it.idx[:len(it.idx)-1]
	it.buf = it.buf[:ent.off]
}

// Take moves the accumulation out, leaving the receiver empty. The
// returned Items exclusively own the backing buffer: this is the
// atomic hand-off of a full accumulation to a skeleton page.
func (it *Items) Take() Items {
	out := *it
	*it = Items{}
	return out
}
