package woff

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"slices"
)

const (
	woff1Signature = 0x774F4646 // wOFF
	woff1HeaderLen = 44
	woff1EntryLen  = 20
)

// EncodeWOFF encodes f as WOFF 1.0. Each table is zlib compressed unless
// compression does not make it smaller.
func EncodeWOFF(f *SFNT) ([]byte, error) {
	tables := slices.Clone(f.Tables)
	sortTables(tables)
	n := len(tables)
	buf := make([]byte, woff1HeaderLen+woff1EntryLen*n)
	var zbuf bytes.Buffer
	for i, t := range tables {
		zbuf.Reset()
		zw, err := zlib.NewWriterLevel(&zbuf, zlib.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err = zw.Write(t.Data); err != nil {
			return nil, err
		}
		if err = zw.Close(); err != nil {
			return nil, err
		}
		data := t.Data
		if zbuf.Len() < len(t.Data) {
			data = zbuf.Bytes()
		}
		e := buf[woff1HeaderLen+i*woff1EntryLen:]
		copy(e, t.Tag[:])
		binary.BigEndian.PutUint32(e[4:], uint32(len(buf)))
		binary.BigEndian.PutUint32(e[8:], uint32(len(data)))
		binary.BigEndian.PutUint32(e[12:], uint32(len(t.Data)))
		binary.BigEndian.PutUint32(e[16:], t.Checksum)
		buf = append(buf, data...)
		for len(buf)%4 != 0 {
			buf = append(buf, 0)
		}
	}
	binary.BigEndian.PutUint32(buf, woff1Signature)
	binary.BigEndian.PutUint32(buf[4:], f.Flavor)
	binary.BigEndian.PutUint32(buf[8:], uint32(len(buf)))
	binary.BigEndian.PutUint16(buf[12:], uint16(n))
	binary.BigEndian.PutUint32(buf[16:], f.Size())
	binary.BigEndian.PutUint16(buf[20:], 1)
	// minor version, metadata and private data stay 0
	return buf, nil
}
