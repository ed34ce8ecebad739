package tinyfs

import "bytes"

// dirent is the fixed on-disk directory entry record (spec.md §3, §6):
// a uint16 inode number followed by a DIRSIZ-byte name, null-padded and
// not null-terminated when full. inum==0 marks an empty slot.
type dirent struct {
	Inum uint16
	Name [DIRSIZ]byte
}

func (d *dirent) unmarshal(buf []byte, order byteOrder) {
	d.Inum = order.Uint16(buf[0:2])
	copy(d.Name[:], buf[2:2+DIRSIZ])
}

func (d *dirent) marshal(buf []byte, order byteOrder) {
	order.PutUint16(buf[0:2], d.Inum)
	copy(buf[2:2+DIRSIZ], d.Name[:])
}

// setName copies name into the fixed-width Name field, truncating to
// DIRSIZ bytes and zero-padding the remainder.
func (d *dirent) setName(name string) {
	for i := range d.Name {
		d.Name[i] = 0
	}
	n := len(name)
	if n > DIRSIZ {
		n = DIRSIZ
	}
	copy(d.Name[:], name[:n])
}

// name returns the entry's name as a string, stopping at the first NUL
// byte (a full-width name has none and uses all DIRSIZ bytes).
func (d *dirent) name() string {
	n := bytes.IndexByte(d.Name[:], 0)
	if n == -1 {
		n = DIRSIZ
	}
	return string(d.Name[:n])
}

// byteOrder is the subset of encoding/binary.ByteOrder used for fixed
// dirent fields.
type byteOrder interface {
	Uint16([]byte) uint16
	PutUint16([]byte, uint16)
}
