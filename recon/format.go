package recon

import (
	"bytes"
	"encoding/binary"

	"github.com/cespare/xxhash"
	"github.com/klauspost/compress/zstd"
	"github.com/minio/highwayhash"
	"github.com/pierrec/lz4/v4"

	"github.com/emberdb/ember/internal/page"
)

// On-disk page layout:
//
//	0:4    magic
//	4:5    version
//	5:6    page kind
//	6:7    compression
//	7:8    checksum kind
//	8:16   checksum of the stored payload
//	16:24  starting record number
//	24:28  cell count
//	28:32  uncompressed payload length
//	32:    payload
//
// The payload is a cell stream whose shape depends on the page kind.
const (
	magic      = 0x656d6272 // "embr"
	version    = 1
	headerSize = 32
)

// checksum kinds
const (
	ckXxhash  = 0
	ckHighway = 1
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// checksum hashes the stored payload, keyed when the config carries
// a key.
func checksum(cfg Config, b []byte) uint64 {
	if cfg.Key != nil {
		return highwayhash.Sum64(b, cfg.Key)
	}
	return xxhash.Sum64(b)
}

// compress runs the payload through the configured codec. It may
// return the payload itself when there is nothing to gain.
func compress(c Compression, payload []byte) ([]byte, error) {
	switch c {
	case None:
		return payload, nil

	case LZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(payload)))
		n, err := lz4.CompressBlock(payload, dst, nil)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		if n == 0 { // incompressible
			return payload, nil
		}
		return dst[:n], nil

	case Zstd:
		return zstdEncoder.EncodeAll(payload, nil), nil
	}
	return nil, Error.New("unknown compression: %d", c)
}

// seal builds the durable block for a page payload: compress,
// checksum, header. Pages that do not shrink are stored uncompressed.
func seal(cfg Config, kind page.Kind, recno uint64, cells uint32, payload []byte) ([]byte, error) {
	comp := cfg.Compression
	stored, err := compress(comp, payload)
	if err != nil {
		return nil, err
	}
	if len(stored) >= len(payload) {
		stored, comp = payload, None
	}

	ckind := byte(ckXxhash)
	if cfg.Key != nil {
		ckind = ckHighway
	}

	data := make([]byte, headerSize+len(stored))
	binary.BigEndian.PutUint32(data[0:4], magic)
	data[4] = version
	data[5] = byte(kind)
	data[6] = byte(comp)
	data[7] = ckind
	binary.BigEndian.PutUint64(data[16:24], recno)
	binary.BigEndian.PutUint32(data[24:28], cells)
	binary.BigEndian.PutUint32(data[28:32], uint32(len(payload)))
	copy(data[headerSize:], stored)
	binary.BigEndian.PutUint64(data[8:16], checksum(cfg, data[headerSize:]))

	return data, nil
}

// unseal verifies and unpacks a durable block back into its kind,
// starting record number, cell count, and payload.
func unseal(cfg Config, data []byte) (kind page.Kind, recno uint64, cells uint32, payload []byte, err error) {
	if len(data) < headerSize {
		return 0, 0, 0, nil, Error.New("page too small: %d", len(data))
	}
	if m := binary.BigEndian.Uint32(data[0:4]); m != magic {
		return 0, 0, 0, nil, Error.New("bad page magic: %x", m)
	}
	if data[4] != version {
		return 0, 0, 0, nil, Error.New("unknown page version: %d", data[4])
	}

	ckind := byte(ckXxhash)
	if cfg.Key != nil {
		ckind = ckHighway
	}
	if data[7] != ckind {
		return 0, 0, 0, nil, Error.New("checksum kind mismatch: %d != %d", data[7], ckind)
	}

	stored := data[headerSize:]
	if sum := binary.BigEndian.Uint64(data[8:16]); sum != checksum(cfg, stored) {
		return 0, 0, 0, nil, Error.New("page checksum mismatch")
	}

	kind = page.Kind(data[5])
	recno = binary.BigEndian.Uint64(data[16:24])
	cells = binary.BigEndian.Uint32(data[24:28])
	ulen := binary.BigEndian.Uint32(data[28:32])

	switch Compression(data[6]) {
	case None:
		payload = stored

	case LZ4:
		payload = make([]byte, ulen)
		n, uerr := lz4.UncompressBlock(stored, payload)
		if uerr != nil {
			return 0, 0, 0, nil, Error.Wrap(uerr)
		}
		payload = payload[:n]

	case Zstd:
		payload, err = zstdDecoder.DecodeAll(stored, make([]byte, 0, ulen))
		if err != nil {
			return 0, 0, 0, nil, Error.Wrap(err)
		}

	default:
		return 0, 0, 0, nil, Error.New("unknown compression: %d", data[6])
	}

	if uint32(len(payload)) != ulen {
		return 0, 0, 0, nil, Error.New("payload length mismatch: %d != %d", len(payload), ulen)
	}
	return kind, recno, cells, payload, nil
}

// encodePage flattens a skeleton page into its cell payload and cell
// count.
func encodePage(p *page.Page) ([]byte, uint32, error) {
	switch p.Kind {
	case page.ColFix:
		return encodeColFix(p)
	case page.ColRLE:
		return encodeColRLE(p)
	case page.ColVar:
		return encodeColVar(p)
	case page.RowLeaf:
		return encodeRowLeaf(p)
	case page.ColInt:
		return encodeColInt(p)
	case page.RowInt:
		return encodeRowInt(p)
	}
	return nil, 0, Error.New("unknown page kind: %d", p.Kind)
}

// encodeColFix: 4 bytes of value size, then the values back to back.
// Every value on a fixed-length page must be the same size.
func encodeColFix(p *page.Page) ([]byte, uint32, error) {
	count := p.Items.Count()
	if count == 0 {
		return binary.BigEndian.AppendUint32(nil, 0), 0, nil
	}

	size := len(p.Items.Value(0))
	buf := binary.BigEndian.AppendUint32(make([]byte, 0, 4+count*size), uint32(size))
	for i := 0; i < count; i++ {
		v := p.Items.Value(i)
		if len(v) != size {
			return nil, 0, Error.New("fixed-length page with uneven values: %d != %d", len(v), size)
		}
		buf = append(buf, v...)
	}
	return buf, uint32(count), nil
}

// encodeColVar: one cell per value, length prefixed.
func encodeColVar(p *page.Page) ([]byte, uint32, error) {
	var buf []byte
	for i := 0; i < p.Items.Count(); i++ {
		v := p.Items.Value(i)
		buf = binary.AppendUvarint(buf, uint64(len(v)))
		buf = append(buf, v...)
	}
	return buf, uint32(p.Items.Count()), nil
}

// encodeColRLE: adjacent equal values coalesce into (count, value)
// run cells.
func encodeColRLE(p *page.Page) ([]byte, uint32, error) {
	var buf []byte
	var cells uint32

	for i := 0; i < p.Items.Count(); {
		v := p.Items.Value(i)
		run := 1
		for i+run < p.Items.Count() && bytes.Equal(p.Items.Value(i+run), v) {
			run++
		}

		buf = binary.AppendUvarint(buf, uint64(run))
		buf = binary.AppendUvarint(buf, uint64(len(v)))
		buf = append(buf, v...)
		cells++
		i += run
	}
	return buf, cells, nil
}

// encodeRowLeaf: one cell per pair, both lengths prefixed.
func encodeRowLeaf(p *page.Page) ([]byte, uint32, error) {
	var buf []byte
	for i := 0; i < p.Items.Count(); i++ {
		k, v := p.Items.Key(i), p.Items.Value(i)
		buf = binary.AppendUvarint(buf, uint64(len(k)))
		buf = binary.AppendUvarint(buf, uint64(len(v)))
		buf = append(buf, k...)
		buf = append(buf, v...)
	}
	return buf, uint32(p.Items.Count()), nil
}

// encodeColInt: one cell per child, (recno, addr, size). Children
// must already be on disk.
func encodeColInt(p *page.Page) ([]byte, uint32, error) {
	var buf []byte
	for i := range p.Refs {
		ref := &p.Refs[i]
		if ref.State != page.RefDisk || ref.Addr == page.InvalidAddr {
			return nil, 0, Error.New("child page not reconciled")
		}
		buf = binary.AppendUvarint(buf, ref.Recno)
		buf = binary.AppendUvarint(buf, uint64(ref.Addr))
		buf = binary.AppendUvarint(buf, uint64(ref.Size))
	}
	return buf, uint32(len(p.Refs)), nil
}

// encodeRowInt: one cell per child, (key, addr, size).
func encodeRowInt(p *page.Page) ([]byte, uint32, error) {
	var buf []byte
	for i := range p.Refs {
		ref := &p.Refs[i]
		if ref.State != page.RefDisk || ref.Addr == page.InvalidAddr {
			return nil, 0, Error.New("child page not reconciled")
		}
		buf = binary.AppendUvarint(buf, uint64(len(ref.Key)))
		buf = append(buf, ref.Key...)
		buf = binary.AppendUvarint(buf, uint64(ref.Addr))
		buf = binary.AppendUvarint(buf, uint64(ref.Size))
	}
	return buf, uint32(len(p.Refs)), nil
}

// cellReader reads length-prefixed fields out of a payload.
type cellReader struct {
	buf []byte
}

func (c *cellReader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(c.buf)
	if n <= 0 {
		return 0, Error.New("truncated cell")
	}
	c.buf = c.buf[n:]
	return v, nil
}

func (c *cellReader) bytes(n uint64) ([]byte, error) {
	if uint64(len(c.buf)) < n {
		return nil, Error.New("truncated cell: %d < %d", len(c.buf), n)
	}
	out := c.buf[:n:n]
	c.buf = c.buf[n:]
	return out, nil
}

func (c *cellReader) done() bool { return len(c.buf) == 0 }
