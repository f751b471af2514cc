package persist

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/strataseq/cline/blobstore"
	"github.com/strataseq/cline/codec"
	"github.com/strataseq/cline/resource"
)

// Container layout, little-endian:
//
//	magic       [4]byte "CLN1"
//	version     uint8
//	codecLen    uint8, codec name bytes
//	compLen     uint8, compression name bytes
//	payloadLen  uint64
//	payload     (compressed codec bytes)
//	crc32       uint32 (of the compressed payload)

var magic = [4]byte{'C', 'L', 'N', '1'}

const formatVersion = 1

// ErrChecksum is returned when a container's payload does not match its
// recorded checksum.
var ErrChecksum = errors.New("persist: checksum mismatch")

// ErrBadContainer is returned for structurally invalid containers.
var ErrBadContainer = errors.New("persist: malformed container")

// Compression selects the payload compression of a container.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionLZ4  Compression = "lz4"
	CompressionZstd Compression = "zstd"
)

// Options configures Save.
type Options struct {
	// Codec encodes the value. Defaults to codec.Default.
	Codec codec.Codec

	// Compression applied to the encoded payload. Defaults to LZ4.
	Compression Compression

	// Resources rate-limits the upload when its controller carries an
	// upload budget. nil disables throttling.
	Resources *resource.Controller
}

// Save encodes v and writes it as a container blob.
func Save(ctx context.Context, store blobstore.BlobStore, name string, v any, optFns ...func(o *Options)) error {
	opts := Options{
		Codec:       codec.Default,
		Compression: CompressionLZ4,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}

	encoded, err := opts.Codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("persist: encode %s: %w", name, err)
	}

	payload, err := compress(encoded, opts.Compression)
	if err != nil {
		return err
	}

	w, err := store.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("persist: create %s: %w", name, err)
	}

	lw := resource.NewLimitedWriter(ctx, w, opts.Resources)
	if err := writeContainer(lw, opts.Codec.Name(), opts.Compression, payload); err != nil {
		_ = w.Close()
		return fmt.Errorf("persist: write %s: %w", name, err)
	}
	return w.Close()
}

// Load reads a container blob and decodes it into v, selecting codec
// and compression from the header and verifying the checksum.
func Load(ctx context.Context, store blobstore.BlobStore, name string, v any) error {
	b, err := store.Open(ctx, name)
	if err != nil {
		return fmt.Errorf("persist: open %s: %w", name, err)
	}
	defer b.Close()

	rc, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		return fmt.Errorf("persist: read %s: %w", name, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("persist: read %s: %w", name, err)
	}

	codecName, compName, payload, err := parseContainer(raw)
	if err != nil {
		return fmt.Errorf("persist: %s: %w", name, err)
	}

	c, ok := codec.ByName(codecName)
	if !ok {
		return fmt.Errorf("persist: %s: unknown codec %q", name, codecName)
	}

	encoded, err := decompress(payload, Compression(compName))
	if err != nil {
		return fmt.Errorf("persist: %s: %w", name, err)
	}

	if err := c.Unmarshal(encoded, v); err != nil {
		return fmt.Errorf("persist: decode %s: %w", name, err)
	}
	return nil
}

func writeContainer(w io.Writer, codecName string, comp Compression, payload []byte) error {
	var header bytes.Buffer
	header.Write(magic[:])
	header.WriteByte(formatVersion)
	if len(codecName) > 255 || len(comp) > 255 {
		return ErrBadContainer
	}
	header.WriteByte(byte(len(codecName)))
	header.WriteString(codecName)
	header.WriteByte(byte(len(comp)))
	header.WriteString(string(comp))

	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(payload)))
	header.Write(lenBuf[:])

	if _, err := w.Write(header.Bytes()); err != nil {
		return err
	}

	cw := newChecksumWriter(w)
	if _, err := cw.Write(payload); err != nil {
		return err
	}

	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], cw.Sum())
	_, err := w.Write(crcBuf[:])
	return err
}

func parseContainer(raw []byte) (codecName, compName string, payload []byte, err error) {
	r := bytes.NewReader(raw)

	var m [4]byte
	if _, err := io.ReadFull(r, m[:]); err != nil || m != magic {
		return "", "", nil, ErrBadContainer
	}

	version, err := r.ReadByte()
	if err != nil {
		return "", "", nil, ErrBadContainer
	}
	if version != formatVersion {
		return "", "", nil, fmt.Errorf("%w: unsupported version %d", ErrBadContainer, version)
	}

	readString := func() (string, error) {
		n, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		return string(buf), nil
	}

	if codecName, err = readString(); err != nil {
		return "", "", nil, ErrBadContainer
	}
	if compName, err = readString(); err != nil {
		return "", "", nil, ErrBadContainer
	}

	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", "", nil, ErrBadContainer
	}
	payloadLen := binary.LittleEndian.Uint64(lenBuf[:])

	rest := raw[len(raw)-r.Len():]
	if uint64(len(rest)) != payloadLen+4 {
		return "", "", nil, fmt.Errorf("%w: truncated payload", ErrBadContainer)
	}

	payload = rest[:payloadLen]
	crc := binary.LittleEndian.Uint32(rest[payloadLen:])
	if Checksum(payload) != crc {
		return "", "", nil, ErrChecksum
	}

	return codecName, compName, payload, nil
}

func compress(data []byte, comp Compression) ([]byte, error) {
	switch comp {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("persist: lz4 compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("persist: lz4 compress: %w", err)
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("persist: zstd compress: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("persist: unknown compression %q", comp)
	}
}

func decompress(payload []byte, comp Compression) ([]byte, error) {
	switch comp {
	case CompressionNone:
		return payload, nil
	case CompressionLZ4:
		r := lz4.NewReader(bytes.NewReader(payload))
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("persist: lz4 decompress: %w", err)
		}
		return data, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("persist: zstd decompress: %w", err)
		}
		defer dec.Close()
		data, err := dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("persist: zstd decompress: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("persist: unknown compression %q", comp)
	}
}
