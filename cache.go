package ember

import "github.com/emberdb/ember/internal/page"

// Reconciler turns an in-memory skeleton page into its durable
// on-disk form. Submit takes ownership of the page: it converts the
// page's item list into the engine's disk representation, writes it,
// records the result in the page's parent reference, and discards the
// in-memory structure. After a call, successful or not, the submitter
// must not touch the page again.
type Reconciler interface {
	Submit(p *page.Page, flags page.RecFlags) error
}

// Evictor is the hook into the background cache manager. A bulk
// session excludes its tree on start because it manages its own page
// lifetimes, and hands the tree back only when the load succeeds.
type Evictor interface {
	Exclude(t *T)
	Include(t *T)
}
