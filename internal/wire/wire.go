package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	version   byte = 1
	kindEntry byte = 1
)

var (
	ErrCorrupt = errors.New("tagcache: corrupt entry")
	magic4     = [...]byte{'T', 'A', 'G', 'C'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Tag is one (name, generation) pair of an entry's snapshot.
type Tag struct {
	Name string
	Gen  int64
}

// Entry is the framed form of a cache entry.
// CreatedAt and ExpiresAt are unix nanoseconds; ExpiresAt == 0 means no expiry.
type Entry struct {
	CreatedAt int64
	ExpiresAt int64
	Tags      []Tag
	Payload   []byte
}

// Layout:
//
//	magic(4) | ver(1) | kind(1=entry) | created(i64 be) | expires(i64 be) | ntags(u16 be)
//	nameLen(u16 be) | name(nameLen) | gen(i64 be)  * ntags
//	vlen(u32 be) | payload(vlen)
const hdr = 4 + 1 + 1 + 8 + 8 + 2

func EncodeEntry(e Entry) ([]byte, error) {
	if len(e.Tags) > 0xFFFF {
		return nil, fmt.Errorf("tagcache: too many tags in entry: %d", len(e.Tags))
	}
	total := hdr + 4 + len(e.Payload)
	for _, t := range e.Tags {
		if l := len(t.Name); l == 0 || l > 0xFFFF {
			return nil, fmt.Errorf("tagcache: invalid tag name length %d", l)
		}
		total += 2 + len(t.Name) + 8
	}

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)

	var u8 [8]byte
	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint64(u8[:], uint64(e.CreatedAt))
	buf.Write(u8[:])
	binary.BigEndian.PutUint64(u8[:], uint64(e.ExpiresAt))
	buf.Write(u8[:])

	binary.BigEndian.PutUint16(u2[:], uint16(len(e.Tags)))
	buf.Write(u2[:])
	for _, t := range e.Tags {
		binary.BigEndian.PutUint16(u2[:], uint16(len(t.Name)))
		buf.Write(u2[:])
		buf.WriteString(t.Name)
		binary.BigEndian.PutUint64(u8[:], uint64(t.Gen))
		buf.Write(u8[:])
	}

	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
	buf.Write(u4[:])
	buf.Write(e.Payload)
	return buf.Bytes(), nil
}

// DecodeEntry parses b strictly: trailing bytes are rejected.
// The returned Payload aliases b.
func DecodeEntry(b []byte) (Entry, error) {
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindEntry {
		return Entry{}, ErrCorrupt
	}
	off := 6

	var e Entry
	e.CreatedAt = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	e.ExpiresAt = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	n := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if n > 0 {
		// each tag needs at least 2+1+8 bytes; don't trust n for preallocation
		if n > (len(b)-off)/11 {
			return Entry{}, ErrCorrupt
		}
		e.Tags = make([]Tag, 0, n)
	}
	for i := 0; i < n; i++ {
		if off+2 > len(b) {
			return Entry{}, ErrCorrupt
		}
		nlen := int(binary.BigEndian.Uint16(b[off : off+2]))
		off += 2
		if nlen == 0 || nlen > len(b)-off {
			return Entry{}, ErrCorrupt
		}
		name := string(b[off : off+nlen])
		off += nlen

		if off+8 > len(b) {
			return Entry{}, ErrCorrupt
		}
		gen := int64(binary.BigEndian.Uint64(b[off : off+8]))
		off += 8
		e.Tags = append(e.Tags, Tag{Name: name, Gen: gen})
	}

	if off+4 > len(b) {
		return Entry{}, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off {
		return Entry{}, ErrCorrupt
	}
	e.Payload = b[off : off+vlen]
	return e, nil
}
