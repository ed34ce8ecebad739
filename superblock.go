package tinyfs

import (
	"bytes"
	"encoding/binary"
	"reflect"
)

// Superblock is the immutable-after-format record stored in block 1 of
// the device (spec.md §3). Field order and sizes match spec.md §6's
// on-disk format exactly: eight little-endian uint32s.
//
// Decoding walks the struct with reflect the way the teacher's
// super.go does (exported fields only, in declaration order), rather
// than a hand-written sequence of binary.Read calls: the superblock has
// no variant fields the way a dinode does, so the reflective approach
// stays exact and avoids a list of fields that must be kept in sync by
// hand in two places.
type Superblock struct {
	order binary.ByteOrder

	Magic      uint32
	Size       uint32 // total blocks on the device
	NBlocks    uint32 // data blocks (informational; balloc scans all of Size)
	NInodes    uint32 // inode slots
	NLog       uint32 // blocks in the log region, including the header
	LogStart   uint32 // first log block
	InodeStart uint32 // first inode block
	BmapStart  uint32 // first bitmap block
}

const superblockBlock = 1

func (sb *Superblock) binarySize() int {
	v := reflect.ValueOf(sb).Elem()
	sz := 0
	for i := 0; i < v.NumField(); i++ {
		name := v.Type().Field(i).Name
		if name[0] < 'A' || name[0] > 'Z' {
			continue // unexported (order)
		}
		sz += int(v.Field(i).Type().Size())
	}
	return sz
}

// UnmarshalBinary decodes a Superblock from the first binarySize() bytes
// of data. The format is always little-endian (spec.md §6); unlike the
// teacher's squashfs magic, there is no dual-endian signature to sniff.
func (sb *Superblock) UnmarshalBinary(data []byte) error {
	sb.order = binary.LittleEndian
	v := reflect.ValueOf(sb).Elem()
	r := bytes.NewReader(data)
	for i := 0; i < v.NumField(); i++ {
		name := v.Type().Field(i).Name
		if name[0] < 'A' || name[0] > 'Z' {
			continue
		}
		if err := binary.Read(r, sb.order, v.Field(i).Addr().Interface()); err != nil {
			return err
		}
	}
	if sb.Magic != FSMAGIC {
		return ErrInvalidSuper
	}
	return nil
}

// MarshalBinary encodes sb back to its on-disk byte layout.
func (sb *Superblock) MarshalBinary() []byte {
	var buf bytes.Buffer
	v := reflect.ValueOf(sb).Elem()
	order := sb.order
	if order == nil {
		order = binary.LittleEndian
	}
	for i := 0; i < v.NumField(); i++ {
		name := v.Type().Field(i).Name
		if name[0] < 'A' || name[0] > 'Z' {
			continue
		}
		binary.Write(&buf, order, v.Field(i).Interface())
	}
	return buf.Bytes()
}

func readSuperblock(dev BlockDevice) (*Superblock, error) {
	buf := make([]byte, BSIZE)
	if err := dev.ReadBlock(superblockBlock, buf); err != nil {
		return nil, err
	}
	sb := &Superblock{}
	if err := sb.UnmarshalBinary(buf); err != nil {
		return nil, err
	}
	return sb, nil
}

func writeSuperblock(dev BlockDevice, sb *Superblock) error {
	buf := make([]byte, BSIZE)
	copy(buf, sb.MarshalBinary())
	return dev.WriteBlock(superblockBlock, buf)
}
