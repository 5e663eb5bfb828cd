// Package recon reconciles in-memory skeleton pages into their
// durable on-disk form and reads finished trees back. Skeleton pages
// are built by bulk-load sessions and handed over one at a time; the
// writer owns each page from the moment it is submitted.
package recon

import (
	"time"

	"github.com/zeebo/errs"

	"github.com/emberdb/ember/internal/debug"
	"github.com/emberdb/ember/internal/mon"
	"github.com/emberdb/ember/internal/page"
	"github.com/emberdb/ember/io"
)

// Error is the class that contains all the errors from this package.
var Error = errs.Class("recon")

// Compression selects the codec pages are written with.
type Compression uint8

const (
	// None stores page payloads as is.
	None Compression = iota

	// LZ4 block compression.
	LZ4

	// Zstd block compression.
	Zstd
)

// Config adjusts how pages are written and verified.
type Config struct {
	// Compression selects the page codec. Pages that do not shrink
	// are stored uncompressed regardless. Defaults to None.
	Compression Compression

	// Key, when set, must be 32 bytes and switches page checksums
	// from xxhash to keyed highwayhash. Readers need the same key.
	Key []byte
}

// Writer reconciles skeleton pages onto a block disk. It implements
// the engine's Reconciler contract: Submit takes ownership of the
// page, writes its durable form, records the result in the page's
// parent reference, and discards the in-memory structure.
type Writer struct {
	disk io.Disk
	cfg  Config
	next uint32
	hist mon.Histogram
}

// NewWriter returns a writer over the disk. Block allocation resumes
// after the largest block the disk has ever seen.
func NewWriter(disk io.Disk, cfg Config) (*Writer, error) {
	if cfg.Key != nil && len(cfg.Key) != 32 {
		return nil, Error.New("checksum key must be 32 bytes: %d", len(cfg.Key))
	}

	max, err := disk.MaxBlock()
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return &Writer{disk: disk, cfg: cfg, next: max}, nil
}

// Stats returns the histogram of page write latencies.
func (w *Writer) Stats() *mon.Histogram { return &w.hist }

// Submit writes one skeleton page. The page's item list or reference
// array becomes the block payload, the block goes to the disk, and
// the page's parent reference is pointed at it. The page is gone when
// Submit returns: the in-memory structure is discarded on success and
// unspecified on error.
func (w *Writer) Submit(p *page.Page, flags page.RecFlags) error {
	start := time.Now()
	debug.Assert("bulk pages are submitted locked", func() bool { return flags&page.RecLocked != 0 })

	payload, cells, err := encodePage(p)
	if err != nil {
		return err
	}
	data, err := seal(w.cfg, p.Kind, p.Recno, cells, payload)
	if err != nil {
		return err
	}

	addr := w.next + 1
	if err := w.disk.Write(addr, data); err != nil {
		return Error.Wrap(err)
	}
	w.next = addr

	// The parent's reference is the only surviving record of the
	// page.
	if p.Ref != nil {
		p.Ref.Addr = addr
		p.Ref.Size = uint32(len(data))
		p.Ref.State = page.RefDisk
		p.Ref.Page = nil
	}
	if flags&page.RecEvict != 0 {
		p.Discard()
	}

	w.hist.Record(time.Since(start).Nanoseconds())
	return nil
}
