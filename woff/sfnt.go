// Package woff converts TrueType and OpenType fonts into the web font formats
// WOFF 1.0 and WOFF 2.0. Tables are taken over unchanged; WOFF 2.0 output uses
// null transforms only.
package woff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
)

var ErrNotSFNT = errors.New("not an SFNT font")

const (
	flavorTrueType = 0x00010000
	flavorOpenType = 0x4F54544F // OTTO
	flavorApple    = 0x74727565 // true

	sfntHeaderLen = 12
	sfntEntryLen  = 16
)

type Tag [4]byte

func (t Tag) String() string { return string(t[:]) }

func MakeTag(s string) (t Tag) {
	copy(t[:], s)
	for i := len(s); i < 4; i++ {
		t[i] = ' '
	}
	return t
}

type Table struct {
	Tag      Tag
	Checksum uint32
	Data     []byte
}

// SFNT is a parsed TrueType or OpenType font. Its tables are sorted by tag.
type SFNT struct {
	Flavor uint32
	Tables []Table
}

// ParseSFNT reads the table directory of font data. Table data is not copied.
func ParseSFNT(data []byte) (*SFNT, error) {
	if len(data) < sfntHeaderLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrNotSFNT, len(data))
	}
	f := &SFNT{Flavor: binary.BigEndian.Uint32(data)}
	switch f.Flavor {
	case flavorTrueType, flavorOpenType, flavorApple:
	default:
		return nil, fmt.Errorf("%w: flavor %08x", ErrNotSFNT, f.Flavor)
	}
	n := int(binary.BigEndian.Uint16(data[4:]))
	if len(data) < sfntHeaderLen+n*sfntEntryLen {
		return nil, fmt.Errorf("%w: truncated table directory", ErrNotSFNT)
	}
	f.Tables = make([]Table, n)
	for i := range f.Tables {
		e := data[sfntHeaderLen+i*sfntEntryLen:]
		off := binary.BigEndian.Uint32(e[8:])
		l := binary.BigEndian.Uint32(e[12:])
		if uint64(off)+uint64(l) > uint64(len(data)) {
			return nil, fmt.Errorf("table %s exceeds font data", Tag(e[:4]))
		}
		f.Tables[i] = Table{
			Tag:      Tag(e[:4]),
			Checksum: binary.BigEndian.Uint32(e[4:]),
			Data:     data[off : off+l],
		}
	}
	sortTables(f.Tables)
	return f, nil
}

// Table returns the table with tag or nil.
func (f *SFNT) Table(tag string) *Table {
	t := MakeTag(tag)
	for i := range f.Tables {
		if f.Tables[i].Tag == t {
			return &f.Tables[i]
		}
	}
	return nil
}

// Size is the size of the font in SFNT format with padded tables.
func (f *SFNT) Size() uint32 {
	sz := uint32(sfntHeaderLen + sfntEntryLen*len(f.Tables))
	for _, t := range f.Tables {
		sz += pad4(uint32(len(t.Data)))
	}
	return sz
}

// Bytes writes the font in SFNT format.
func (f *SFNT) Bytes() []byte {
	n := len(f.Tables)
	buf := make([]byte, sfntHeaderLen+sfntEntryLen*n, f.Size())
	binary.BigEndian.PutUint32(buf, f.Flavor)
	binary.BigEndian.PutUint16(buf[4:], uint16(n))
	es, sel := uint16(1), uint16(0)
	for es*2 <= uint16(n) {
		es *= 2
		sel++
	}
	binary.BigEndian.PutUint16(buf[6:], es*16)
	binary.BigEndian.PutUint16(buf[8:], sel)
	binary.BigEndian.PutUint16(buf[10:], uint16(n)*16-es*16)
	for i, t := range f.Tables {
		e := buf[sfntHeaderLen+i*sfntEntryLen:]
		copy(e, t.Tag[:])
		binary.BigEndian.PutUint32(e[4:], t.Checksum)
		binary.BigEndian.PutUint32(e[8:], uint32(len(buf)))
		binary.BigEndian.PutUint32(e[12:], uint32(len(t.Data)))
		buf = append(buf, t.Data...)
		buf = append(buf, make([]byte, pad4(uint32(len(t.Data)))-uint32(len(t.Data)))...)
	}
	return buf
}

// Checksum computes the SFNT table checksum of data.
func Checksum(data []byte) (sum uint32) {
	for len(data) >= 4 {
		sum += binary.BigEndian.Uint32(data)
		data = data[4:]
	}
	if len(data) > 0 {
		var last [4]byte
		copy(last[:], data)
		sum += binary.BigEndian.Uint32(last[:])
	}
	return sum
}

func sortTables(ts []Table) {
	slices.SortFunc(ts, func(a, b Table) int {
		return slices.Compare(a.Tag[:], b.Tag[:])
	})
}

func pad4(n uint32) uint32 { return (n + 3) &^ 3 }
