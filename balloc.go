package tinyfs

// balloc scans the on-disk bitmap for the first clear bit, sets it under
// log_write, zeroes the corresponding block (also under log_write), and
// returns its block number. Must run inside a transaction (spec.md §4.3).
//
// The bitmap indexes every block in the device by absolute block number,
// not just the data region: Format pre-marks blocks 0..data-start-1 (the
// superblock, log, inode table, and bitmap itself) as allocated, so balloc
// never hands one of those out. The loop bound is therefore sb.Size (the
// whole device), matching the bitmap's own coverage.
//
// The bitmap may span more than one block once sb.Size exceeds BPB
// (spec.md §9's open question); the outer loop below steps by BPB across
// every bitmap block, and the inner loop is bounded both by BPB and by
// the actual remaining block count, so b+bi >= sb.Size is checked at both
// boundaries rather than assumed away for a small disk.
func (fs *FileSystem) balloc() uint32 {
	sb := fs.sb
	for b := uint32(0); b < sb.Size; b += BPB {
		bp := fs.bc.bread(fs.dev, sb.BmapStart+b/BPB)
		for bi := uint32(0); bi < BPB && b+bi < sb.Size; bi++ {
			m := byte(1 << (bi % 8))
			if bp.data[bi/8]&m != 0 {
				continue // already allocated
			}
			bp.data[bi/8] |= m
			fs.log.write(bp)
			fs.bc.brelse(bp)

			blockno := b + bi
			zb := fs.bc.bread(fs.dev, blockno)
			zb.data = [BSIZE]byte{}
			fs.log.write(zb)
			fs.bc.brelse(zb)
			return blockno
		}
		fs.bc.brelse(bp)
	}
	fatalf("balloc", "out of blocks")
	return 0
}

// BitmapSnapshot reads the whole on-disk bitmap and returns one bool per
// block number (true meaning allocated), for read-only consistency tools
// like tinyfsfsck that need to cross-check the bitmap against what is
// actually reachable from the root, something balloc/bfree have no reason
// to expose on their own.
func (fs *FileSystem) BitmapSnapshot() []bool {
	sb := fs.sb
	out := make([]bool, sb.Size)
	for b := uint32(0); b < sb.Size; b += BPB {
		bp := fs.bc.bread(fs.dev, sb.BmapStart+b/BPB)
		for bi := uint32(0); bi < BPB && b+bi < sb.Size; bi++ {
			m := byte(1 << (bi % 8))
			out[b+bi] = bp.data[bi/8]&m != 0
		}
		fs.bc.brelse(bp)
	}
	return out
}

// bfree clears the bit for block b in the on-disk bitmap, under
// log_write. Panics if the block was already free (spec.md §4.3, §7.2).
func (fs *FileSystem) bfree(b uint32) {
	sb := fs.sb
	bp := fs.bc.bread(fs.dev, sb.BmapStart+b/BPB)
	bi := b % BPB
	m := byte(1 << (bi % 8))
	if bp.data[bi/8]&m == 0 {
		fs.bc.brelse(bp)
		fatalf("bfree", "freeing already-free block %d", b)
	}
	bp.data[bi/8] &^= m
	fs.log.write(bp)
	fs.bc.brelse(bp)
}
