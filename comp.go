package tinyfs

import (
	"encoding/binary"
	"fmt"
)

// Codec compresses and decompresses whole file blobs. Registered codecs are
// an optional convenience layered above writei/readi (see comp_zstd.go,
// comp_xz.go): metadata blocks (inodes, bitmap, log, directory entries)
// never pass through a Codec, only opted-in file content does, so codec
// availability never affects crash recovery.
type Codec interface {
	Name() string
	Compress(dst, src []byte) []byte
	Decompress(dst, src []byte) ([]byte, error)
}

var codecs = map[string]Codec{}

// RegisterCodec installs a Codec under name, overwriting any previous
// registration. Called from the init() of each build-tag-gated comp_*.go
// file, mirroring the teacher's comp_zstd.go/comp_xz.go registration style.
func RegisterCodec(c Codec) {
	codecs[c.Name()] = c
}

const compHeaderMagic = 0x7a66 // "zf"

// compHeader is the fixed-size prefix WriteFile writes ahead of compressed
// content: enough for ReadFile to pick the right codec and size its output
// buffer, without touching the superblock format spec.md §6 pins.
type compHeader struct {
	Magic    uint16
	CodecTag uint16
	RawLen   uint32
}

const compHeaderSize = 8

func (h compHeader) marshal() []byte {
	buf := make([]byte, compHeaderSize)
	binary.LittleEndian.PutUint16(buf[0:2], h.Magic)
	binary.LittleEndian.PutUint16(buf[2:4], h.CodecTag)
	binary.LittleEndian.PutUint32(buf[4:8], h.RawLen)
	return buf
}

func unmarshalCompHeader(buf []byte) (compHeader, error) {
	var h compHeader
	if len(buf) < compHeaderSize {
		return h, fmt.Errorf("tinyfs: short compressed file header")
	}
	h.Magic = binary.LittleEndian.Uint16(buf[0:2])
	h.CodecTag = binary.LittleEndian.Uint16(buf[2:4])
	h.RawLen = binary.LittleEndian.Uint32(buf[4:8])
	if h.Magic != compHeaderMagic {
		return h, fmt.Errorf("tinyfs: not a compressed file")
	}
	return h, nil
}

// codecTags assigns a stable small integer to each known codec name so the
// on-disk header need not carry a variable-length string.
var codecTags = map[string]uint16{
	"none": 0,
	"zstd": 1,
	"xz":   2,
}

func codecNameForTag(tag uint16) (string, bool) {
	for name, t := range codecTags {
		if t == tag {
			return name, true
		}
	}
	return "", false
}

// WriteFile compresses data with the named codec (registered by a comp_*.go
// build tag) and writes it to ip starting at offset 0, truncating any
// existing content first. codec="none" stores data uncompressed but still
// behind the header, so ReadFile works uniformly either way.
func (fs *FileSystem) WriteFile(ip *Inode, data []byte, codec string) error {
	tag, ok := codecTags[codec]
	if !ok {
		fatalf("WriteFile", "unknown codec %q", codec)
	}

	var payload []byte
	if codec == "none" {
		payload = data
	} else {
		c, ok := codecs[codec]
		if !ok {
			return fmt.Errorf("tinyfs: codec %q not registered (missing build tag?)", codec)
		}
		payload = c.Compress(nil, data)
	}

	hdr := compHeader{Magic: compHeaderMagic, CodecTag: tag, RawLen: uint32(len(data))}
	fs.Itrunc(ip)
	out := append(hdr.marshal(), payload...)
	_, err := fs.Writei(ip, out, 0)
	return err
}

// ReadFile reads the whole of ip and, if it begins with a recognized
// compHeader, decompresses it with the codec named in the header. Files
// written directly with Writei (no header) are returned as-is.
func (fs *FileSystem) ReadFile(ip *Inode) ([]byte, error) {
	raw := make([]byte, ip.Size)
	n, err := fs.Readi(ip, raw, 0)
	if err != nil {
		return nil, err
	}
	raw = raw[:n]

	hdr, err := unmarshalCompHeader(raw)
	if err != nil {
		return raw, nil
	}
	payload := raw[compHeaderSize:]

	name, ok := codecNameForTag(hdr.CodecTag)
	if !ok {
		return nil, fmt.Errorf("tinyfs: unknown codec tag %d", hdr.CodecTag)
	}
	if name == "none" {
		return payload, nil
	}
	c, ok := codecs[name]
	if !ok {
		return nil, fmt.Errorf("tinyfs: codec %q not registered (missing build tag?)", name)
	}
	dst := make([]byte, 0, hdr.RawLen)
	return c.Decompress(dst, payload)
}
