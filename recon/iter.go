package recon

import (
	"encoding/binary"

	"github.com/emberdb/ember/internal/page"
	"github.com/emberdb/ember/io"
)

// childRef is one decoded entry of an internal page.
type childRef struct {
	key   []byte
	recno uint64
	addr  uint32
	size  uint32
}

// Iterator reads a bulk-loaded tree back from the disk in order,
// leaf by leaf. It is a forward scan over a finished tree, not a
// general cursor: row trees yield (Key, Value) and column trees
// yield (Recno, Value).
type Iterator struct {
	disk io.Disk
	cfg  Config
	root uint32

	loaded bool
	refs   []childRef

	// current leaf, decoded
	keys   [][]byte
	vals   [][]byte
	recnos []uint64
	pos    int

	key   []byte
	value []byte
	recno uint64
	err   error
}

// NewIterator scans the tree whose root page is at the given block.
// The config must match the one the tree was written with.
func NewIterator(disk io.Disk, root uint32, cfg Config) *Iterator {
	return &Iterator{disk: disk, cfg: cfg, root: root}
}

// Next advances to the next entry, reporting false at the end of the
// tree or on error.
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.loaded {
		it.loaded = true
		if it.err = it.loadRoot(); it.err != nil {
			return false
		}
	}

	for it.pos >= len(it.vals) {
		if len(it.refs) == 0 {
			return false
		}
		ref := it.refs[0]
		it.refs = it.refs[1:]
		if it.err = it.loadLeaf(ref); it.err != nil {
			return false
		}
	}

	if it.keys != nil {
		it.key = it.keys[it.pos]
	}
	it.value = it.vals[it.pos]
	if it.recnos != nil {
		it.recno = it.recnos[it.pos]
	}
	it.pos++
	return true
}

// Key returns the current key. Row trees only.
func (it *Iterator) Key() []byte { return it.key }

// Value returns the current value.
func (it *Iterator) Value() []byte { return it.value }

// Recno returns the current record number. Column trees only.
func (it *Iterator) Recno() uint64 { return it.recno }

// Err returns the error that stopped the iteration, if any.
func (it *Iterator) Err() error { return it.err }

// read fetches and unseals one block.
func (it *Iterator) read(addr uint32) (page.Kind, uint64, uint32, []byte, error) {
	if addr == page.InvalidAddr {
		return 0, 0, 0, nil, Error.New("invalid page address")
	}
	data, err := it.disk.Read(addr)
	if err != nil {
		return 0, 0, 0, nil, Error.Wrap(err)
	}
	if data == nil {
		return 0, 0, 0, nil, Error.New("missing page: block %d", addr)
	}
	return unseal(it.cfg, data)
}

// loadRoot decodes the root internal page into child references.
func (it *Iterator) loadRoot() error {
	kind, _, count, payload, err := it.read(it.root)
	if err != nil {
		return err
	}

	c := cellReader{buf: payload}
	refs := make([]childRef, 0, count)

	switch kind {
	case page.ColInt:
		for !c.done() {
			var ref childRef
			if ref.recno, err = c.uvarint(); err != nil {
				return err
			}
			addr, err := c.uvarint()
			if err != nil {
				return err
			}
			size, err := c.uvarint()
			if err != nil {
				return err
			}
			ref.addr, ref.size = uint32(addr), uint32(size)
			refs = append(refs, ref)
		}

	case page.RowInt:
		for !c.done() {
			var ref childRef
			klen, err := c.uvarint()
			if err != nil {
				return err
			}
			if ref.key, err = c.bytes(klen); err != nil {
				return err
			}
			addr, err := c.uvarint()
			if err != nil {
				return err
			}
			size, err := c.uvarint()
			if err != nil {
				return err
			}
			ref.addr, ref.size = uint32(addr), uint32(size)
			refs = append(refs, ref)
		}

	default:
		return Error.New("root is not an internal page: %s", kind)
	}

	if uint32(len(refs)) != count {
		return Error.New("root cell count mismatch: %d != %d", len(refs), count)
	}
	it.refs = refs
	return nil
}

// loadLeaf decodes one leaf page into the current position.
func (it *Iterator) loadLeaf(ref childRef) error {
	kind, recno, count, payload, err := it.read(ref.addr)
	if err != nil {
		return err
	}

	it.keys, it.vals, it.recnos, it.pos = nil, nil, nil, 0
	c := cellReader{buf: payload}

	switch kind {
	case page.ColFix:
		sizeBuf, err := c.bytes(4)
		if err != nil {
			return err
		}
		size := uint64(binary.BigEndian.Uint32(sizeBuf))
		for i := uint32(0); i < count; i++ {
			v, err := c.bytes(size)
			if err != nil {
				return err
			}
			it.vals = append(it.vals, v)
			it.recnos = append(it.recnos, recno+uint64(i))
		}

	case page.ColVar:
		for i := uint32(0); i < count; i++ {
			vlen, err := c.uvarint()
			if err != nil {
				return err
			}
			v, err := c.bytes(vlen)
			if err != nil {
				return err
			}
			it.vals = append(it.vals, v)
			it.recnos = append(it.recnos, recno+uint64(i))
		}

	case page.ColRLE:
		next := recno
		for i := uint32(0); i < count; i++ {
			run, err := c.uvarint()
			if err != nil {
				return err
			}
			vlen, err := c.uvarint()
			if err != nil {
				return err
			}
			v, err := c.bytes(vlen)
			if err != nil {
				return err
			}
			for j := uint64(0); j < run; j++ {
				it.vals = append(it.vals, v)
				it.recnos = append(it.recnos, next)
				next++
			}
		}

	case page.RowLeaf:
		for i := uint32(0); i < count; i++ {
			klen, err := c.uvarint()
			if err != nil {
				return err
			}
			vlen, err := c.uvarint()
			if err != nil {
				return err
			}
			k, err := c.bytes(klen)
			if err != nil {
				return err
			}
			v, err := c.bytes(vlen)
			if err != nil {
				return err
			}
			it.keys = append(it.keys, k)
			it.vals = append(it.vals, v)
		}

	default:
		return Error.New("not a leaf page: %s", kind)
	}

	if !c.done() {
		return Error.New("leaf payload has trailing bytes: %d", len(c.buf))
	}
	return nil
}
