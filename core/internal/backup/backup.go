// Package backup stores and loads snapshots of a single archive entry.
//
// A snapshot holds the entry's original directory record and payload so a
// failed or unwanted replace can be undone. Snapshots are zstd streams:
//
//	"IMGB"            magic
//	u32 LE            slot of the directory record
//	[32]byte          original directory record
//	u16 LE + bytes    payload digest (go-digest string form)
//	payload           StreamingSize*2048 bytes
package backup

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/img/core/internal/imgtype"
	"github.com/meigma/img/core/internal/record"
	"github.com/meigma/img/core/internal/sizing"
)

const (
	magic = "IMGB"

	// Ext is the file extension of snapshot files.
	Ext = ".bak.zst"

	maxDigestLen     = 256
	maxDecoderMemory = 256 << 20
	digestPrefixLen  = 16
)

// ErrCorrupt is returned when a snapshot cannot be decoded or its payload
// does not match the recorded digest.
var ErrCorrupt = errors.New("img: corrupt backup")

// Snapshot is the decoded content of a backup file.
type Snapshot struct {
	// Entry is the directory record as it was when the snapshot was taken.
	Entry imgtype.Entry

	// Record is the raw 32-byte directory record.
	Record []byte

	// Digest identifies Payload.
	Digest digest.Digest

	// Payload is the entry's original payload, padding included.
	Payload []byte
}

// FileName returns the snapshot file name for an entry and payload digest.
func FileName(name string, d digest.Digest) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, strings.ToLower(name))
	enc := d.Encoded()
	if len(enc) > digestPrefixLen {
		enc = enc[:digestPrefixLen]
	}
	return safe + "." + enc + Ext
}

// Write stores a snapshot of entry e, whose raw record is rec, in dir and
// returns its path. The file is written atomically.
func Write(dir string, e *imgtype.Entry, rec, payload []byte) (string, error) {
	if len(rec) != imgtype.RecordSize {
		return "", fmt.Errorf("backup %s: record is %d bytes", e.Name, len(rec))
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	d := digest.FromBytes(payload)
	target := filepath.Join(dir, FileName(e.Name, d))

	tmp, err := os.CreateTemp(dir, ".img-backup-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	enc, err := zstd.NewWriter(tmp, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return "", fmt.Errorf("create zstd encoder: %w", err)
	}
	if err := encode(enc, e.Slot, rec, d, payload); err != nil {
		enc.Close()
		return "", fmt.Errorf("write backup %s: %w", e.Name, err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("write backup %s: %w", e.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close backup %s: %w", e.Name, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return "", fmt.Errorf("rename backup %s: %w", e.Name, err)
	}
	success = true
	return target, nil
}

func encode(w io.Writer, slot int, rec []byte, d digest.Digest, payload []byte) error {
	hdr := make([]byte, 0, len(magic)+4+len(rec)+2+len(d))
	hdr = append(hdr, magic...)
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(slot)) //nolint:gosec // slot < record count
	hdr = append(hdr, rec...)
	hdr = binary.LittleEndian.AppendUint16(hdr, uint16(len(d))) //nolint:gosec // digest strings are short
	hdr = append(hdr, string(d)...)
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// Read loads and verifies the snapshot at path.
func Read(path string) (*Snapshot, error) {
	f, err := os.Open(path) //nolint:gosec // path is intentionally caller-provided
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(maxDecoderMemory))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	s, err := decode(dec)
	if err != nil {
		return nil, fmt.Errorf("read backup %s: %w", filepath.Base(path), err)
	}
	return s, nil
}

func decode(r io.Reader) (*Snapshot, error) {
	fixed := make([]byte, len(magic)+4+imgtype.RecordSize+2)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if string(fixed[:len(magic)]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	slot := binary.LittleEndian.Uint32(fixed[4:8])
	rec := bytes.Clone(fixed[8 : 8+imgtype.RecordSize])
	dlen := binary.LittleEndian.Uint16(fixed[8+imgtype.RecordSize:])
	if dlen == 0 || dlen > maxDigestLen {
		return nil, fmt.Errorf("%w: digest length %d", ErrCorrupt, dlen)
	}
	dbuf := make([]byte, dlen)
	if _, err := io.ReadFull(r, dbuf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	want, err := digest.Parse(string(dbuf))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	entry, err := record.Decode(rec, int(slot))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	payload, err := sizing.ReadAllWithLimit(r, uint64(sizing.ByteLength(sizing.MaxSectors)), ErrCorrupt) //nolint:gosec // positive constant
	if err != nil {
		if errors.Is(err, ErrCorrupt) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if int64(len(payload)) != entry.ByteLength() {
		return nil, fmt.Errorf("%w: payload is %d bytes, record says %d",
			ErrCorrupt, len(payload), entry.ByteLength())
	}
	if got := want.Algorithm().FromBytes(payload); got != want {
		return nil, fmt.Errorf("%w: digest %s, want %s", ErrCorrupt, got, want)
	}

	return &Snapshot{
		Entry:   entry,
		Record:  rec,
		Digest:  want,
		Payload: payload,
	}, nil
}
