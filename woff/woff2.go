package woff

import (
	"bytes"
	"encoding/binary"
	"slices"

	"github.com/andybalholm/brotli"
)

const (
	woff2Signature = 0x774F4632 // wOF2
	woff2HeaderLen = 48

	woff2ArbitraryTag = 63
	woff2NullGlyf     = 3 << 6
)

var woff2KnownTags = [...]string{
	"cmap", "head", "hhea", "hmtx", "maxp", "name", "OS/2", "post",
	"cvt ", "fpgm", "glyf", "loca", "prep", "CFF ", "VORG", "EBDT",
	"EBLC", "gasp", "hdmx", "kern", "LTSH", "PCLT", "VDMX", "vhea",
	"vmtx", "BASE", "GDEF", "GPOS", "GSUB", "EBSC", "JSTF", "MATH",
	"CBDT", "CBLC", "COLR", "CPAL", "SVG ", "sbix", "acnt", "avar",
	"bdat", "bloc", "bsln", "cvar", "fdsc", "feat", "fmtx", "fvar",
	"gvar", "hsty", "just", "lcar", "mort", "morx", "opbd", "prop",
	"trak", "Zapf", "Silf", "Glat", "Gloc", "Feat", "Sill",
}

func knownTag(t Tag) int {
	return slices.Index(woff2KnownTags[:], t.String())
}

// EncodeWOFF2 encodes f as WOFF 2.0. All tables go untransformed into one
// brotli stream.
func EncodeWOFF2(f *SFNT) ([]byte, error) {
	tables := woff2Order(f.Tables)
	var dir []byte
	for _, t := range tables {
		flags := byte(woff2ArbitraryTag)
		if k := knownTag(t.Tag); k >= 0 {
			flags = byte(k)
		}
		switch t.Tag.String() {
		case "glyf", "loca":
			flags |= woff2NullGlyf
		}
		dir = append(dir, flags)
		if flags&woff2ArbitraryTag == woff2ArbitraryTag {
			dir = append(dir, t.Tag[:]...)
		}
		dir = appendBase128(dir, uint32(len(t.Data)))
	}

	var cbuf bytes.Buffer
	bw := brotli.NewWriterLevel(&cbuf, brotli.BestCompression)
	for _, t := range tables {
		if _, err := bw.Write(t.Data); err != nil {
			return nil, err
		}
	}
	if err := bw.Close(); err != nil {
		return nil, err
	}

	buf := make([]byte, woff2HeaderLen, woff2HeaderLen+len(dir)+cbuf.Len()+3)
	buf = append(buf, dir...)
	buf = append(buf, cbuf.Bytes()...)
	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	binary.BigEndian.PutUint32(buf, woff2Signature)
	binary.BigEndian.PutUint32(buf[4:], f.Flavor)
	binary.BigEndian.PutUint32(buf[8:], uint32(len(buf)))
	binary.BigEndian.PutUint16(buf[12:], uint16(len(tables)))
	binary.BigEndian.PutUint32(buf[16:], f.Size())
	binary.BigEndian.PutUint32(buf[20:], uint32(cbuf.Len()))
	binary.BigEndian.PutUint16(buf[24:], 1)
	return buf, nil
}

// woff2Order sorts tables by tag, except loca that follows glyf.
func woff2Order(ts []Table) []Table {
	res := slices.Clone(ts)
	sortTables(res)
	li := slices.IndexFunc(res, func(t Table) bool { return t.Tag.String() == "loca" })
	if li < 0 {
		return res
	}
	loca := res[li]
	res = slices.Delete(res, li, li+1)
	gi := slices.IndexFunc(res, func(t Table) bool { return t.Tag.String() == "glyf" })
	if gi < 0 {
		return slices.Insert(res, li, loca)
	}
	return slices.Insert(res, gi+1, loca)
}

// appendBase128 appends the UIntBase128 encoding of v.
func appendBase128(buf []byte, v uint32) []byte {
	var tmp [5]byte
	i := len(tmp) - 1
	tmp[i] = byte(v & 0x7f)
	for v >>= 7; v > 0; v >>= 7 {
		i--
		tmp[i] = byte(v&0x7f) | 0x80
	}
	return append(buf, tmp[i:]...)
}
