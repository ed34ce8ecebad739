package tinyfs

// Readi reads up to len(dst) bytes of ip's content starting at off into
// dst, one block at a time through Bmap. Clips to [0, ip.Size]; an
// out-of-range offset reads zero bytes rather than erroring (spec.md
// §4.4, §7.1).
func (fs *FileSystem) Readi(ip *Inode, dst []byte, off uint32) (int, error) {
	if off > ip.Size {
		return 0, nil
	}
	n := uint32(len(dst))
	if off+n > ip.Size {
		n = ip.Size - off
	}

	total := uint32(0)
	for total < n {
		addr := fs.Bmap(ip, off/BSIZE)
		b := fs.bc.bread(ip.dev, addr)
		boff := off % BSIZE
		m := n - total
		if room := uint32(BSIZE) - boff; m > room {
			m = room
		}
		copy(dst[total:total+m], b.data[boff:boff+m])
		fs.bc.brelse(b)

		total += m
		off += m
	}
	return int(total), nil
}

// Writei writes len(src) bytes of src into ip's content starting at off,
// one block at a time through Bmap, logging each modified data block.
// Extends ip.Size if the write grows the file, and calls Iupdate after
// every write that passes the argument checks (Bmap may have modified the
// address array even when the size did not change). Returns
// ErrFileTooLarge/ErrBadOffset for malformed arguments, without touching
// the inode (spec.md §4.4, §7.1).
func (fs *FileSystem) Writei(ip *Inode, src []byte, off uint32) (int, error) {
	n := uint32(len(src))
	if uint64(off)+uint64(n) > uint64(MAXFILE)*BSIZE {
		return -1, ErrFileTooLarge
	}
	if off > ip.Size {
		return -1, ErrBadOffset
	}

	total := uint32(0)
	for total < n {
		addr := fs.Bmap(ip, off/BSIZE)
		b := fs.bc.bread(ip.dev, addr)
		boff := off % BSIZE
		m := n - total
		if room := uint32(BSIZE) - boff; m > room {
			m = room
		}
		copy(b.data[boff:boff+m], src[total:total+m])
		fs.log.write(b)
		fs.bc.brelse(b)

		total += m
		off += m
	}

	if n > 0 && off > ip.Size {
		ip.Size = off
	}
	fs.Iupdate(ip)
	return int(total), nil
}
