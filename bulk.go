package ember

import (
	"unsafe"

	"github.com/zeebo/errs"

	"github.com/emberdb/ember/internal/page"
)

// Error classes for everything that can go wrong during a bulk load.
// Callers distinguish kinds with Class.Has.
var (
	// StateError: an operation was attempted against a tree or
	// session in the wrong state.
	StateError = errs.Class("state")

	// AllocError: memory could not be obtained. The state prior to
	// the failing call is unchanged.
	AllocError = errs.Class("alloc")

	// ReconcileError: the reconciler failed after taking ownership
	// of a page. The tree is unusable and must be rebuilt.
	ReconcileError = errs.Class("reconcile")

	// FormatError: an unrecognized page layout reached a dispatch
	// point. Unreachable with a validated configuration.
	FormatError = errs.Class("format")
)

// defaultRefChunk is how many parent-reference slots the tracker
// grows by when it runs out, unless configured otherwise.
const defaultRefChunk = 1000

// refSize is the accounting cost of one parent-reference slot.
const refSize = int(unsafe.Sizeof(page.Ref{}))

// BulkConfig configures a bulk-load session.
type BulkConfig struct {
	// Threshold is the number of items accumulated into a leaf page
	// before it is flushed. Required.
	Threshold int

	// RefChunk is the growth increment of the parent-reference
	// tracker, in slots. Defaults to 1000.
	RefChunk int

	// Reconciler receives every flushed page. Required.
	Reconciler Reconciler

	// Evictor is told to leave the tree alone for the duration of
	// the session. Optional.
	Evictor Evictor

	// Alloc approves the session's memory growth. Defaults to the
	// heap allocator, which never refuses.
	Alloc page.Allocator
}

type bulkState uint8

const (
	bulkActive bulkState = iota
	bulkClosed
	bulkFailed
)

// Bulk is a bulk-load session against a single empty tree. Entries
// must be appended in strictly ascending key order (row stores) or
// are assigned sequential record numbers starting at 1 (column
// stores); ordering is the caller's obligation and is not checked.
// Any error fails the session permanently. It is not thread safe.
type Bulk struct {
	tree  *T
	kind  page.Kind
	rec   Reconciler
	ev    Evictor
	alloc page.Allocator

	state     bulkState
	threshold int
	refChunk  int

	recno uint64     // next record number, column kinds
	items page.Items // the active accumulation
	refs  []page.Ref // one per flushed leaf, append-only
}

// BeginBulk starts a bulk load. Bulk loading is only possible for an
// empty tree: the root must still be the implicit empty page made by
// New, and it is discarded here. The tree is excluded from background
// eviction until the session ends because the session manages its own
// page lifetimes.
func (t *T) BeginBulk(cfg BulkConfig) (*Bulk, error) {
	switch {
	case cfg.Reconciler == nil:
		return nil, Error.New("bulk load requires a reconciler")
	case cfg.Threshold < 1:
		return nil, Error.New("bulk load requires a positive leaf threshold: %d", cfg.Threshold)
	}
	if cfg.RefChunk < 1 {
		cfg.RefChunk = defaultRefChunk
	}
	if cfg.Alloc == nil {
		cfg.Alloc = page.Heap{}
	}

	if t.root.State != page.RefMem || t.root.Page == nil || !t.root.Page.Initial {
		return nil, StateError.New("bulk load is only possible for empty trees")
	}

	b := &Bulk{
		tree:      t,
		kind:      t.kind,
		rec:       cfg.Reconciler,
		ev:        cfg.Evictor,
		alloc:     cfg.Alloc,
		threshold: cfg.Threshold,
		refChunk:  cfg.RefChunk,
	}

	switch t.kind {
	case page.ColFix, page.ColRLE, page.ColVar:
		b.recno = 1
	case page.RowLeaf:
	default:
		return nil, FormatError.New("unknown tree layout: %s", t.kind)
	}

	// Discard the empty page and take over page lifetimes from the
	// eviction manager.
	t.root = page.Ref{State: page.RefDisk, Addr: page.InvalidAddr}
	t.noEvict = true
	if b.ev != nil {
		b.ev.Exclude(t)
	}

	return b, nil
}

// Append adds one entry to the bulk load. Column-store trees take no
// key and assign the next record number implicitly; row-store trees
// require a key strictly greater than every key appended so far. The
// value bytes are copied.
func (b *Bulk) Append(key, value []byte) error {
	if b.state != bulkActive {
		return StateError.New("bulk session is no longer active")
	}

	switch b.kind {
	case page.ColFix, page.ColRLE, page.ColVar:
		if key != nil {
			return b.fail(Error.New("column-store bulk load takes no key"))
		}
		return b.fail(b.appendCol(value))
	case page.RowLeaf:
		return b.fail(b.appendRow(key, value))
	}
	return b.fail(FormatError.New("unknown leaf layout: %s", b.kind))
}

// appendCol accumulates one column-store value. The Nth value since
// the last flush lands on record number recno+N-1 implicitly.
func (b *Bulk) appendCol(value []byte) error {
	if err := b.items.Append(b.alloc, nil, value); err != nil {
		return AllocError.Wrap(err)
	}

	// If the page is full, reconcile it and reset the accumulation.
	if b.items.Count() == b.threshold {
		return b.unappendOnAllocErr(b.flushCol())
	}
	return nil
}

// appendRow accumulates one row-store key/value pair.
func (b *Bulk) appendRow(key, value []byte) error {
	if len(key) == 0 {
		return Error.New("row-store bulk load requires a key")
	}
	if err := b.items.Append(b.alloc, key, value); err != nil {
		return AllocError.Wrap(err)
	}

	// If the page is full, reconcile it and reset the accumulation.
	if b.items.Count() == b.threshold {
		return b.unappendOnAllocErr(b.flushRow())
	}
	return nil
}

// unappendOnAllocErr releases the item the current Append call added
// when the flush it triggered could not get memory, so the failing
// call leaves no trace. A flush that failed in reconciliation already
// gave the list away and there is nothing to release.
func (b *Bulk) unappendOnAllocErr(err error) error {
	if err != nil && AllocError.Has(err) {
		b.items.Unappend()
	}
	return err
}

// growRefs makes room for at least one more parent reference,
// extending the tracker by whole chunks so growth cost is amortized
// across flushes rather than paid on every one.
func (b *Bulk) growRefs() error {
	if len(b.refs) < cap(b.refs) {
		return nil
	}
	if err := b.alloc.Reserve(b.refChunk * refSize); err != nil {
		return AllocError.Wrap(err)
	}

	refs := make([]page.Ref, len(b.refs), cap(b.refs)+b.refChunk)
	copy(refs, b.refs)
	b.refs = refs
	return nil
}

// fail moves the session to the failed state when err is set. Every
// exported entry point routes its result through here.
func (b *Bulk) fail(err error) error {
	if err != nil {
		b.state = bulkFailed
	}
	return err
}
