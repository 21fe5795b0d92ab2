package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version   byte = 1
	kindEntry byte = 1

	hdrLen = 4 + 1 + 1 + 8 + 4
)

var (
	ErrCorrupt    = errors.New("nscache: corrupt entry")
	ErrKeyTooLong = errors.New("nscache: key too long for entry framing")
	magic4        = [...]byte{'N', 'S', 'C', 'F'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Entry is one stored value together with the key it was written under and
// its absolute expiry (zero => never expires).
type Entry struct {
	Key       string
	ExpiresAt time.Time
	Payload   []byte
}

// Expired reports whether e is past its expiry at now.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Encode frames e as:
//
//	magic(4) | ver(1) | kind(1) | expires(i64 be, unix nanos; 0 = none) |
//	klen(u32 be) | key(klen) | vlen(u32 be) | payload(vlen)
func Encode(e Entry) ([]byte, error) {
	if uint64(len(e.Key)) > 0xFFFFFFFF {
		return nil, ErrKeyTooLong
	}
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(e.Key) + 4 + len(e.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)

	var u8 [8]byte
	var u4 [4]byte

	var exp int64
	if !e.ExpiresAt.IsZero() {
		exp = e.ExpiresAt.UnixNano()
	}
	binary.BigEndian.PutUint64(u8[:], uint64(exp))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Key)))
	buf.Write(u4[:])
	buf.WriteString(e.Key)

	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
	buf.Write(u4[:])
	buf.Write(e.Payload)
	return buf.Bytes(), nil
}

// Decode parses a framed entry. The payload aliases b. Trailing bytes are
// rejected.
func Decode(b []byte) (Entry, error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version || b[5] != kindEntry {
		return Entry{}, ErrCorrupt
	}
	off := 6

	exp := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	klen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if klen < 0 || klen > len(b)-off {
		return Entry{}, ErrCorrupt
	}
	key := string(b[off : off+klen])
	off += klen

	if off+4 > len(b) {
		return Entry{}, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off {
		return Entry{}, ErrCorrupt
	}

	e := Entry{Key: key, Payload: b[off : off+vlen]}
	if exp != 0 {
		e.ExpiresAt = time.Unix(0, exp)
	}
	return e, nil
}
