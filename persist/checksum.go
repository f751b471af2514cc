package persist

import (
	"hash"
	"hash/crc32"
	"io"
)

// CRC32 (IEEE) guards containers against accidental storage corruption.
// It is not tamper-proof; artifacts are trusted inputs.

var crcTable = crc32.MakeTable(crc32.IEEE)

// Checksum computes the CRC32 checksum of data.
func Checksum(data []byte) uint32 {
	return crc32.Checksum(data, crcTable)
}

// checksumWriter wraps an io.Writer and keeps a running CRC32 of
// everything written through it.
type checksumWriter struct {
	w    io.Writer
	hash hash.Hash32
}

func newChecksumWriter(w io.Writer) *checksumWriter {
	return &checksumWriter{
		w:    w,
		hash: crc32.New(crcTable),
	}
}

func (cw *checksumWriter) Write(p []byte) (int, error) {
	_, _ = cw.hash.Write(p) // never fails per hash.Hash contract
	return cw.w.Write(p)
}

func (cw *checksumWriter) Sum() uint32 {
	return cw.hash.Sum32()
}
