package ember

import (
	"github.com/emberdb/ember/internal/debug"
	"github.com/emberdb/ember/internal/page"
)

// flushCol wraps the accumulated values into a column-store skeleton
// leaf, records its starting record number for the parent level, and
// hands the page to the reconciler.
func (b *Bulk) flushCol() error {
	debug.Assert("flush of an empty accumulation", func() bool { return b.items.Count() > 0 })

	if err := b.growRefs(); err != nil {
		return err
	}

	count := uint64(b.items.Count())
	b.refs = append(b.refs, page.Ref{Recno: b.recno})
	ref := &b.refs[len(b.refs)-1]

	// The page owns the item list from here on.
	p := page.NewLeaf(b.kind, b.recno, &b.items, ref)
	ref.State, ref.Page = page.RefMem, p

	// Update the starting record number for the next page.
	b.recno += count

	if err := b.rec.Submit(p, page.RecEvict|page.RecLocked); err != nil {
		return ReconcileError.Wrap(err)
	}
	return nil
}

// flushRow wraps the accumulated pairs into a row-store skeleton leaf
// and hands it to the reconciler. The first key is copied into the
// parent reference before the hand-off: the accumulation buffer's
// fate now belongs to the submitted page, while the reference must
// stay valid for the life of the tracker.
func (b *Bulk) flushRow() error {
	debug.Assert("flush of an empty accumulation", func() bool { return b.items.Count() > 0 })

	if err := b.growRefs(); err != nil {
		return err
	}

	first := b.items.Key(0)
	if err := b.alloc.Reserve(len(first)); err != nil {
		return AllocError.Wrap(err)
	}
	key := append([]byte(nil), first...)

	b.refs = append(b.refs, page.Ref{Key: key})
	ref := &b.refs[len(b.refs)-1]

	// The page owns the item list from here on.
	p := page.NewLeaf(page.RowLeaf, 0, &b.items, ref)
	ref.State, ref.Page = page.RefMem, p

	if err := b.rec.Submit(p, page.RecEvict|page.RecLocked); err != nil {
		return ReconcileError.Wrap(err)
	}
	return nil
}

// Finish completes the bulk load: it flushes the final partial page,
// builds the single internal root page over every parent reference
// recorded during the session, attaches it as the tree's root, and
// reconciles it. On success the tree is readable; on any error the
// tree is left unusable and must be rebuilt from scratch. A session
// that appended nothing still attaches a root page with no entries.
func (b *Bulk) Finish() error {
	if b.state != bulkActive {
		return StateError.New("bulk session is no longer active")
	}
	return b.fail(b.finish())
}

func (b *Bulk) finish() error {
	// The final partial page still has to make it out.
	if b.items.Count() != 0 {
		var err error
		switch b.kind {
		case page.ColFix, page.ColRLE, page.ColVar:
			err = b.flushCol()
		case page.RowLeaf:
			err = b.flushRow()
		default:
			err = FormatError.New("unknown leaf layout: %s", b.kind)
		}
		if err != nil {
			return err
		}
	}

	kind := b.kind.Internal()
	if kind == page.Invalid {
		return FormatError.New("unknown leaf layout: %s", b.kind)
	}

	// A column root counts from the first record of the tree.
	var recno uint64
	if b.kind.Column() {
		recno = 1
	}

	t := b.tree
	root := page.NewInternal(kind, recno, b.refs, &t.root)
	b.refs = nil // the root page owns the references now

	// Reference the new page from the root of the tree.
	t.root = page.Ref{State: page.RefMem, Addr: page.InvalidAddr, Page: root}

	if err := b.rec.Submit(root, page.RecEvict|page.RecLocked); err != nil {
		return ReconcileError.Wrap(err)
	}

	// Only a fully loaded tree goes back to the eviction manager.
	t.noEvict = false
	if b.ev != nil {
		b.ev.Include(t)
	}

	b.state = bulkClosed
	return nil
}
