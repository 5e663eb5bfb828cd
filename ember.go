package ember

import (
	"github.com/zeebo/errs"

	"github.com/emberdb/ember/internal/page"
)

// Error is the class that contains all the errors from this package.
var Error = errs.Class("ember")

// Kind selects the layout of a tree's leaf pages.
type Kind = page.Kind

const (
	// ColFix is a column store with fixed-length values.
	ColFix = page.ColFix

	// ColRLE is a column store with run-length encoded values.
	ColRLE = page.ColRLE

	// ColVar is a column store with variable-length values.
	ColVar = page.ColVar

	// RowLeaf is a row store with explicit keys.
	RowLeaf = page.RowLeaf
)

// T is a handle to a single tree. A freshly created tree holds only
// the implicit empty root page and contains no data until it is bulk
// loaded. It is not thread safe.
type T struct {
	kind    page.Kind
	root    page.Ref
	noEvict bool
}

// New returns a tree of the given leaf layout whose root is the
// implicit, never-written empty page.
func New(kind Kind) *T {
	return &T{
		kind: kind,
		root: page.Ref{
			State: page.RefMem,
			Addr:  page.InvalidAddr,
			Page:  &page.Page{Kind: kind, Initial: true},
		},
	}
}

// Kind returns the tree's leaf layout.
func (t *T) Kind() Kind { return t.kind }

// Root returns the tree's current root reference. After a successful
// bulk load it points at the reconciled root page on disk.
func (t *T) Root() *page.Ref { return &t.root }

// NoEviction reports whether the tree is excluded from background
// eviction because a bulk session owns its page lifetimes.
func (t *T) NoEviction() bool { return t.noEvict }
