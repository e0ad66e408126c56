// Package asset recognizes the RenderWare files stored in and next to an
// archive by the type of their top-level chunk.
//
// Every RenderWare file starts with a 12-byte chunk header: type, payload
// size and library version, each a little-endian u32. Only the type is used
// to tell models from texture dictionaries.
package asset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// HeaderSize is the size of a RenderWare chunk header. Shorter files are
// never recognized.
const HeaderSize = 12

// Kind identifies an asset by its top-level chunk type.
type Kind uint32

const (
	// KindUnknown is any chunk type not listed below.
	KindUnknown Kind = 0

	// KindModel is a clump, stored in .dff files.
	KindModel Kind = 0x10

	// KindTextureDictionary is a texture dictionary, stored in .txd files.
	KindTextureDictionary Kind = 0x16
)

// ErrShort is returned when fewer than HeaderSize bytes are available.
var ErrShort = errors.New("asset: shorter than chunk header")

func (k Kind) String() string {
	switch k {
	case KindModel:
		return "model"
	case KindTextureDictionary:
		return "texture dictionary"
	case KindUnknown:
		return "unknown"
	}
	return fmt.Sprintf("chunk 0x%x", uint32(k))
}

// Ext returns the file extension used for k, or "" for other kinds.
func (k Kind) Ext() string {
	switch k {
	case KindModel:
		return ".dff"
	case KindTextureDictionary:
		return ".txd"
	}
	return ""
}

// Header is a decoded RenderWare chunk header.
type Header struct {
	Type    uint32
	Size    uint32
	Version uint32
}

// Kind returns the asset kind for the header's chunk type.
func (h Header) Kind() Kind {
	switch Kind(h.Type) {
	case KindModel, KindTextureDictionary:
		return Kind(h.Type)
	}
	return KindUnknown
}

// ParseHeader decodes the chunk header at the start of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrShort
	}
	return Header{
		Type:    binary.LittleEndian.Uint32(b[0:4]),
		Size:    binary.LittleEndian.Uint32(b[4:8]),
		Version: binary.LittleEndian.Uint32(b[8:12]),
	}, nil
}

// Detect returns the kind of the size-byte asset readable from r.
func Detect(r io.ReaderAt, size int64) Kind {
	if size < HeaderSize {
		return KindUnknown
	}
	buf := make([]byte, HeaderSize)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return KindUnknown
	}
	h, _ := ParseHeader(buf)
	return h.Kind()
}

// DetectBytes returns the kind of the asset held in b.
func DetectBytes(b []byte) Kind {
	h, err := ParseHeader(b)
	if err != nil {
		return KindUnknown
	}
	return h.Kind()
}

// Check reports whether the file at path is an asset of the given kind.
// A missing file, or one shorter than HeaderSize, is reported as false
// without an error; other I/O failures are returned.
func Check(path string, kind Kind) (bool, error) {
	f, err := os.Open(path) //nolint:gosec // path is intentionally caller-provided
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	return Detect(f, info.Size()) == kind, nil
}

// KindFromName returns the kind implied by the extension of name, ignoring
// case.
func KindFromName(name string) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".dff":
		return KindModel
	case ".txd":
		return KindTextureDictionary
	}
	return KindUnknown
}
