package tinyfs

import "encoding/binary"

// dinode is the on-disk inode record (spec.md §3): type/major/minor/nlink
// as int16, size as uint32, and NDIRECT+2 uint32 block addresses (direct,
// one singly-indirect, one doubly-indirect). type==0 marks a free slot.
// Packed IPB-per-block starting at the superblock's InodeStart.
type dinode struct {
	Type  int16
	Major int16
	Minor int16
	NLink int16
	Size  uint32
	Addrs [NDIRECT + 2]uint32
}

func (d *dinode) unmarshal(buf []byte, order binary.ByteOrder) {
	_ = buf[dinodeSize-1] // bounds check hint, like the teacher's explicit index checks
	d.Type = int16(order.Uint16(buf[0:2]))
	d.Major = int16(order.Uint16(buf[2:4]))
	d.Minor = int16(order.Uint16(buf[4:6]))
	d.NLink = int16(order.Uint16(buf[6:8]))
	d.Size = order.Uint32(buf[8:12])
	for i := range d.Addrs {
		off := 12 + i*4
		d.Addrs[i] = order.Uint32(buf[off : off+4])
	}
}

func (d *dinode) marshal(buf []byte, order binary.ByteOrder) {
	_ = buf[dinodeSize-1]
	order.PutUint16(buf[0:2], uint16(d.Type))
	order.PutUint16(buf[2:4], uint16(d.Major))
	order.PutUint16(buf[4:6], uint16(d.Minor))
	order.PutUint16(buf[6:8], uint16(d.NLink))
	order.PutUint32(buf[8:12], d.Size)
	for i, a := range d.Addrs {
		off := 12 + i*4
		order.PutUint32(buf[off:off+4], a)
	}
}

// inodeBlockOffset returns the block holding inode number inum, and the
// byte offset of its dinode slot within that block.
func inodeBlockOffset(sb *Superblock, inum uint32) (block uint32, off uint32) {
	return sb.InodeStart + inum/IPB, (inum % IPB) * dinodeSize
}
