package woff

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"git.fractalqb.de/fractalqb/testerr"
	"github.com/andybalholm/brotli"
)

func testFont() *SFNT {
	mk := func(tag string, data []byte) Table {
		return Table{Tag: MakeTag(tag), Checksum: Checksum(data), Data: data}
	}
	return &SFNT{
		Flavor: flavorTrueType,
		Tables: []Table{
			mk("name", bytes.Repeat([]byte("Roboto Regular "), 40)),
			mk("head", make([]byte, 54)),
			mk("loca", []byte{0, 0, 0, 4, 0, 9}),
			mk("glyf", []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}),
			mk("zzzz", []byte{42}),
		},
	}
}

func TestParseSFNT(t *testing.T) {
	font := testFont()
	parsed := testerr.Shall1(ParseSFNT(font.Bytes())).BeNil(t)
	if parsed.Flavor != flavorTrueType {
		t.Errorf("flavor %08x", parsed.Flavor)
	}
	if l := len(parsed.Tables); l != 5 {
		t.Fatalf("parsed %d tables", l)
	}
	if tag := parsed.Tables[0].Tag.String(); tag != "glyf" {
		t.Errorf("tables not sorted, first is %s", tag)
	}
	name := parsed.Table("name")
	if name == nil {
		t.Fatal("no name table")
	}
	if !bytes.Equal(name.Data, font.Table("name").Data) {
		t.Error("name table data changed")
	}
	if parsed.Size() != uint32(len(font.Bytes())) {
		t.Errorf("size %d of %d bytes", parsed.Size(), len(font.Bytes()))
	}
}

func TestParseSFNT_notFont(t *testing.T) {
	_, err := ParseSFNT([]byte("<svg></svg>"))
	if !errors.Is(err, ErrNotSFNT) {
		t.Errorf("unexpected error %v", err)
	}
}

func TestEncodeWOFF(t *testing.T) {
	font := testFont()
	font = testerr.Shall1(ParseSFNT(font.Bytes())).BeNil(t)
	data := testerr.Shall1(EncodeWOFF(font)).BeNil(t)

	if sig := binary.BigEndian.Uint32(data); sig != woff1Signature {
		t.Fatalf("signature %08x", sig)
	}
	if l := binary.BigEndian.Uint32(data[8:]); int(l) != len(data) {
		t.Errorf("header length %d of %d bytes", l, len(data))
	}
	if len(data)%4 != 0 {
		t.Error("woff not padded")
	}
	n := int(binary.BigEndian.Uint16(data[12:]))
	if n != len(font.Tables) {
		t.Fatalf("%d tables in woff", n)
	}
	if sz := binary.BigEndian.Uint32(data[16:]); sz != font.Size() {
		t.Errorf("total sfnt size %d", sz)
	}
	compressed := make(map[string]bool)
	for i := 0; i < n; i++ {
		e := data[woff1HeaderLen+i*woff1EntryLen:]
		off := binary.BigEndian.Uint32(e[4:])
		clen := binary.BigEndian.Uint32(e[8:])
		olen := binary.BigEndian.Uint32(e[12:])
		if off%4 != 0 {
			t.Errorf("table %d not aligned", i)
		}
		tdata := data[off : off+clen]
		if clen < olen {
			compressed[font.Tables[i].Tag.String()] = true
			zr := testerr.Shall1(zlib.NewReader(bytes.NewReader(tdata))).BeNil(t)
			tdata = testerr.Shall1(io.ReadAll(zr)).BeNil(t)
		}
		if !bytes.Equal(tdata, font.Tables[i].Data) {
			t.Errorf("table %s differs", font.Tables[i].Tag)
		}
		if cs := binary.BigEndian.Uint32(e[16:]); cs != font.Tables[i].Checksum {
			t.Errorf("table %s has checksum %08x", font.Tables[i].Tag, cs)
		}
	}
	if !compressed["name"] {
		t.Error("name table not compressed")
	}
	for _, tag := range []string{"glyf", "loca", "zzzz"} {
		if compressed[tag] {
			t.Errorf("tiny table %s compressed", tag)
		}
	}
}

func TestEncodeWOFF2(t *testing.T) {
	font := testFont()
	data := testerr.Shall1(EncodeWOFF2(font)).BeNil(t)

	if sig := binary.BigEndian.Uint32(data); sig != woff2Signature {
		t.Fatalf("signature %08x", sig)
	}
	if l := binary.BigEndian.Uint32(data[8:]); int(l) != len(data) {
		t.Errorf("header length %d of %d bytes", l, len(data))
	}
	n := int(binary.BigEndian.Uint16(data[12:]))
	if n != 5 {
		t.Fatalf("%d tables in woff2", n)
	}
	var (
		dir    = data[woff2HeaderLen:]
		tags   []string
		total  int
		expect []byte
	)
	for i := 0; i < n; i++ {
		flags := dir[0]
		dir = dir[1:]
		var tag string
		if k := flags & woff2ArbitraryTag; k == woff2ArbitraryTag {
			tag, dir = string(dir[:4]), dir[4:]
		} else {
			tag = woff2KnownTags[k]
		}
		switch tag {
		case "glyf", "loca":
			if flags&0xC0 != woff2NullGlyf {
				t.Errorf("%s not null transformed", tag)
			}
		default:
			if flags&0xC0 != 0 {
				t.Errorf("%s is transformed", tag)
			}
		}
		olen, m, err := readBase128(dir)
		testerr.Shall(err).BeNil(t)
		dir = dir[m:]
		tags = append(tags, tag)
		total += int(olen)
		expect = append(expect, font.Table(tag).Data...)
	}
	if got := strings.Join(tags, ","); got != "glyf,loca,head,name,zzzz" {
		t.Errorf("table order %s", got)
	}
	clen := binary.BigEndian.Uint32(data[20:])
	br := brotli.NewReader(bytes.NewReader(dir[:clen]))
	stream := testerr.Shall1(io.ReadAll(br)).BeNil(t)
	if len(stream) != total {
		t.Errorf("stream has %d bytes, tables %d", len(stream), total)
	}
	if !bytes.Equal(stream, expect) {
		t.Error("decompressed tables differ")
	}
}

func TestBase128(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 16383, 16384, 1 << 28, 0xFFFFFFFF} {
		enc := appendBase128(nil, v)
		if enc[0] == 0x80 {
			t.Errorf("%d encoded with leading zero", v)
		}
		dec, n, err := readBase128(enc)
		testerr.Shall(err).BeNil(t)
		if dec != v || n != len(enc) {
			t.Errorf("%d decoded as %d with %d of %d bytes", v, dec, n, len(enc))
		}
	}
}

func TestConvertFile(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "Roboto.ttf")
	testerr.Shall(os.WriteFile(src, testFont().Bytes(), 0644)).BeNil(t)
	out := filepath.Join(tmp, "fonts")
	ws := testerr.Shall1(ConvertFile(src, out, WOFF|WOFF2)).BeNil(t)
	if len(ws) != 2 {
		t.Fatalf("wrote %v", ws)
	}
	for _, n := range []string{"Roboto.woff", "Roboto.woff2"} {
		testerr.Shall1(os.Stat(filepath.Join(out, n))).BeNil(t)
	}
}

var errBase128 = errors.New("invalid UIntBase128")

func readBase128(data []byte) (v uint32, n int, err error) {
	for n < 5 && n < len(data) {
		b := data[n]
		if n == 0 && b == 0x80 {
			return 0, 0, errBase128
		}
		if v&0xFE000000 != 0 {
			return 0, 0, errBase128
		}
		v = v<<7 | uint32(b&0x7f)
		n++
		if b&0x80 == 0 {
			return v, n, nil
		}
	}
	return 0, 0, errBase128
}
