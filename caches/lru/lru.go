package caches

import "github.com/emberdb/ember/io"

// T is an LRU cache for an io.Disk that implements the same
// interface. It caches decoded block data on Read and writes through
// on Write. It is not thread safe.
type T struct {
	capacity int
	disk     io.Disk
	blocks   map[uint32]*slot
	head     *slot // most recently used
	tail     *slot // least recently used
}

// slot is one cached block on an intrusive LRU list.
type slot struct {
	block      uint32
	data       []byte
	prev, next *slot
}

// New returns an LRU cache holding up to capacity blocks in front of
// the given disk.
func New(capacity int, disk io.Disk) *T {
	return &T{
		capacity: capacity,
		disk:     disk,
		blocks:   make(map[uint32]*slot),
	}
}

// BlockSize returns the blocksize of the underlying disk.
func (t *T) BlockSize() int32 { return t.disk.BlockSize() }

// MaxBlock returns the largest block of the underlying disk.
func (t *T) MaxBlock() (uint32, error) { return t.disk.MaxBlock() }

// Read returns the cached data for the block, falling back to the
// underlying disk and caching whatever it returns.
func (t *T) Read(block uint32) ([]byte, error) {
	if s, ok := t.blocks[block]; ok {
		t.touch(s)
		return s.data, nil
	}

	data, err := t.disk.Read(block)
	if err != nil {
		return nil, err
	}
	if data != nil {
		t.insert(block, data)
	}
	return data, nil
}

// Write stores the data on the underlying disk and caches it.
func (t *T) Write(block uint32, data []byte) error {
	if err := t.disk.Write(block, data); err != nil {
		return err
	}

	if s, ok := t.blocks[block]; ok {
		s.data = append([]byte(nil), data...)
		t.touch(s)
		return nil
	}
	t.insert(block, data)
	return nil
}

// Len returns how many blocks are currently cached.
func (t *T) Len() int { return len(t.blocks) }

// insert adds a block at the head, evicting the tail if over
// capacity. The data is copied so callers may reuse their buffers.
func (t *T) insert(block uint32, data []byte) {
	if t.capacity < 1 {
		return
	}
	if len(t.blocks) >= t.capacity {
		evict := t.tail
		t.unlink(evict)
		delete(t.blocks, evict.block)
	}

	s := &slot{block: block, data: append([]byte(nil), data...)}
	t.blocks[block] = s
	t.push(s)
}

// touch moves the slot to the head of the list.
func (t *T) touch(s *slot) {
	if t.head == s {
		return
	}
	t.unlink(s)
	t.push(s)
}

func (t *T) push(s *slot) {
	s.prev, s.next = nil, t.head
	if t.head != nil {
		t.head.prev = s
	}
	t.head = s
	if t.tail == nil {
		t.tail = s
	}
}

func (t *T) unlink(s *slot) {
	if s.prev != nil {
		s.prev.next = s.next
	} else {
		t.head = s.next
	}
	if s.next != nil {
		s.next.prev = s.prev
	} else {
		t.tail = s.prev
	}
	s.prev, s.next = nil, nil
}
