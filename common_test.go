package ember

import (
	"fmt"
	"time"

	"github.com/zeebo/errs"

	"github.com/emberdb/ember/internal/page"
	"github.com/emberdb/ember/internal/pcg"
)

var gen = pcg.New(uint64(time.Now().UnixNano()), 0)

// rowKey returns the i'th key of the sorted row-store corpus.
func rowKey(i int) []byte {
	return []byte(fmt.Sprintf("%08d", i))
}

// rowValue returns a deterministic value for the i'th key.
func rowValue(i int) []byte {
	p := pcg.New(uint64(i), 7)
	out := make([]byte, 1+p.Intn(64))
	for j := range out {
		out[j] = byte(p.Uint32())
	}
	return out
}

// flushedRef is a copy of one parent reference of a recorded page.
type flushedRef struct {
	key   []byte
	recno uint64
	addr  uint32
}

// flushedPage is a copy of everything a submitted page carried.
type flushedPage struct {
	kind  page.Kind
	recno uint64
	keys  [][]byte
	vals  [][]byte
	refs  []flushedRef
}

// memRecon is a Reconciler that records what was flushed and
// otherwise honors the ownership contract: it fills in the parent
// reference and discards the page.
type memRecon struct {
	pages  []flushedPage
	next   uint32
	failAt int // fail the n'th submit, 0 never
}

func (m *memRecon) Submit(p *page.Page, flags page.RecFlags) error {
	if m.failAt != 0 && len(m.pages)+1 == m.failAt {
		return errs.New("reconciliation failed")
	}

	f := flushedPage{kind: p.Kind, recno: p.Recno}
	for i := 0; i < p.Items.Count(); i++ {
		f.keys = append(f.keys, append([]byte(nil), p.Items.Key(i)...))
		f.vals = append(f.vals, append([]byte(nil), p.Items.Value(i)...))
	}
	for i := range p.Refs {
		ref := &p.Refs[i]
		f.refs = append(f.refs, flushedRef{key: ref.Key, recno: ref.Recno, addr: ref.Addr})
	}
	m.pages = append(m.pages, f)

	m.next++
	if p.Ref != nil {
		p.Ref.Addr = m.next
		p.Ref.Size = 1
		p.Ref.State = page.RefDisk
		p.Ref.Page = nil
	}
	if flags&page.RecEvict != 0 {
		p.Discard()
	}
	return nil
}

// leaves returns the recorded leaf pages, root returns the root page.
// Valid only after a successful Finish.
func (m *memRecon) leaves() []flushedPage { return m.pages[:len(m.pages)-1] }
func (m *memRecon) root() flushedPage     { return m.pages[len(m.pages)-1] }

// memEvictor counts the eviction-manager calls.
type memEvictor struct {
	excluded int
	included int
}

func (e *memEvictor) Exclude(*T) { e.excluded++ }
func (e *memEvictor) Include(*T) { e.included++ }

// reserveN is an allocator that refuses the n'th reservation.
type reserveN struct {
	calls  int
	failAt int // fail the n'th Reserve, 0 never
}

func (r *reserveN) Reserve(int) error {
	r.calls++
	if r.failAt != 0 && r.calls == r.failAt {
		return errs.New("out of memory")
	}
	return nil
}

// memDisk is an in-memory io.Disk for integration tests.
type memDisk struct {
	max    uint32
	blocks map[uint32][]byte
}

func newMemDisk() *memDisk {
	return &memDisk{blocks: make(map[uint32][]byte)}
}

func (m *memDisk) BlockSize() int32          { return 4096 }
func (m *memDisk) MaxBlock() (uint32, error) { return m.max, nil }

func (m *memDisk) Read(block uint32) ([]byte, error) {
	return m.blocks[block], nil
}

func (m *memDisk) Write(block uint32, data []byte) error {
	m.blocks[block] = append([]byte(nil), data...)
	if block > m.max {
		m.max = block
	}
	return nil
}
