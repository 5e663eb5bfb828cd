package page

// Kind identifies a page layout.
type Kind uint8

const (
	Invalid Kind = iota

	ColFix  // fixed-length column-store leaf
	ColRLE  // run-length column-store leaf
	ColVar  // variable-length column-store leaf
	RowLeaf // row-store leaf

	ColInt // column-store internal
	RowInt // row-store internal
)

// Column reports whether the kind addresses entries by record number.
func (k Kind) Column() bool {
	switch k {
	case ColFix, ColRLE, ColVar, ColInt:
		return true
	}
	return false
}

// Leaf reports whether the kind is a leaf layout.
func (k Kind) Leaf() bool {
	switch k {
	case ColFix, ColRLE, ColVar, RowLeaf:
		return true
	}
	return false
}

// Internal returns the internal-page counterpart of a leaf kind, or
// Invalid if there isn't one.
func (k Kind) Internal() Kind {
	switch k {
	case ColFix, ColRLE, ColVar:
		return ColInt
	case RowLeaf:
		return RowInt
	}
	return Invalid
}

func (k Kind) String() string {
	switch k {
	case ColFix:
		return "col-fix"
	case ColRLE:
		return "col-rle"
	case ColVar:
		return "col-var"
	case RowLeaf:
		return "row-leaf"
	case ColInt:
		return "col-int"
	case RowInt:
		return "row-int"
	}
	return "invalid"
}

// RefState tracks where a referenced page currently lives.
type RefState uint8

const (
	// RefDisk: the page lives on disk at Addr, or nowhere at all if
	// Addr is InvalidAddr.
	RefDisk RefState = iota

	// RefMem: the page lives in memory at Page.
	RefMem
)

// InvalidAddr marks a reference whose page has never been written.
const InvalidAddr uint32 = 0

// Ref is one parent reference: the separator key or starting record
// number of a child page, plus a handle to wherever that child lives.
// The reconciler fills in Addr and Size and flips State to RefDisk
// when it writes the child out.
type Ref struct {
	Key   []byte // separator key, row stores only
	Recno uint64 // starting record number, column stores only

	State RefState
	Addr  uint32
	Size  uint32
	Page  *Page // valid while State == RefMem
}

// RecFlags adjust how the reconciler treats a submitted page.
type RecFlags uint32

const (
	// RecEvict: discard the in-memory page as soon as it is written.
	RecEvict RecFlags = 1 << iota

	// RecLocked: the page is privately owned, no locking is needed.
	RecLocked
)

// Page is an in-memory skeleton page: raw accumulated items (leaf
// kinds) or child references (internal kinds), with no on-disk image
// behind it. Once a page is submitted to a reconciler it belongs to
// the reconciler and must not be touched again.
type Page struct {
	Kind  Kind
	Recno uint64 // starting record number, column kinds

	Items Items // owned leaf items
	Refs  []Ref // owned child references, internal kinds

	Ref *Ref // the parent's reference slot for this page

	Dirty   bool
	Bulk    bool // built by a bulk-load session
	Initial bool // the implicit empty page a new tree starts with
}

// NewLeaf wraps an accumulated item list into a skeleton leaf page.
// The list moves: items is empty when NewLeaf returns.
func NewLeaf(kind Kind, recno uint64, items *Items, ref *Ref) *Page {
	return &Page{
		Kind:  kind,
		Recno: recno,
		Items: items.Take(),
		Ref:   ref,
		Dirty: true,
		Bulk:  true,
	}
}

// NewInternal builds an internal page over the given child references.
func NewInternal(kind Kind, recno uint64, refs []Ref, ref *Ref) *Page {
	return &Page{
		Kind:  kind,
		Recno: recno,
		Refs:  refs,
		Ref:   ref,
		Dirty: true,
		Bulk:  true,
	}
}

// Discard drops the page's contents so nothing can read them through
// a stale pointer.
func (p *Page) Discard() {
	p.Items = Items{}
	p.Refs = nil
}
