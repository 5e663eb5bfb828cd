package recon

import (
	"fmt"

	"github.com/emberdb/ember/internal/page"
)

// memDisk is an in-memory io.Disk.
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

// rowItems builds an accumulation of n key/value pairs.
func rowItems(n int) page.Items {
	var it page.Items
	for i := 0; i < n; i++ {
		k := []byte(fmt.Sprintf("%06d", i))
		v := []byte(fmt.Sprintf("value-%d", i))
		if err := it.Append(page.Heap{}, k, v); err != nil {
			panic(err)
		}
	}
	return it
}

// colItems builds an accumulation of n values.
func colItems(n int, value func(i int) []byte) page.Items {
	var it page.Items
	for i := 0; i < n; i++ {
		if err := it.Append(page.Heap{}, nil, value(i)); err != nil {
			panic(err)
		}
	}
	return it
}
