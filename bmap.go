package tinyfs

// Bmap translates a logical block index within ip into a disk block
// number, allocating any missing block (direct, indirect, or
// doubly-indirect) along the way (spec.md §4.4). Panics if bn is out of
// range for the maximum file size.
func (fs *FileSystem) Bmap(ip *Inode, bn uint32) uint32 {
	if bn < NDIRECT {
		addr := ip.Addrs[bn]
		if addr == 0 {
			addr = fs.balloc()
			ip.Addrs[bn] = addr
		}
		return addr
	}
	bn -= NDIRECT

	if bn < NINDIRECT {
		return fs.bmapThroughIndirect(ip.dev, &ip.Addrs[NDIRECT], bn)
	}
	bn -= NINDIRECT

	if bn < NINDIRECT*NINDIRECT {
		outer := bn / NINDIRECT
		inner := bn % NINDIRECT
		return fs.bmapThroughIndirect(ip.dev, &ip.Addrs[NDIRECT+1], outer, inner)
	}

	fatalf("Bmap", "block index %d out of range", bn)
	return 0
}

// bmapThroughIndirect walks one or two levels of indirect blocks
// starting from *root (allocating root itself if zero), indexing by the
// first element of path at each level, allocating missing slots, and
// returns the final block number.
func (fs *FileSystem) bmapThroughIndirect(dev uint32, root *uint32, path ...uint32) uint32 {
	addr := *root
	if addr == 0 {
		addr = fs.balloc()
		*root = addr
	}
	for depth, idx := range path {
		b := fs.bc.bread(dev, addr)
		off := idx * 4
		next := fs.sb.order.Uint32(b.data[off : off+4])
		if next == 0 {
			next = fs.balloc()
			fs.sb.order.PutUint32(b.data[off:off+4], next)
			fs.log.write(b)
		}
		fs.bc.brelse(b)
		addr = next
		_ = depth
	}
	return addr
}

// Itrunc frees every block an inode references — direct, the indirect
// block and everything it points to, and the doubly-indirect block and
// everything it points to — zeroes the address array, sets size to 0,
// and writes the inode through. Invoked by Iput on destruction and by
// truncating opens.
func (fs *FileSystem) Itrunc(ip *Inode) {
	for i := 0; i < NDIRECT; i++ {
		if ip.Addrs[i] != 0 {
			fs.bfree(ip.Addrs[i])
			ip.Addrs[i] = 0
		}
	}

	if ip.Addrs[NDIRECT] != 0 {
		fs.freeIndirectBlock(ip.dev, ip.Addrs[NDIRECT])
		ip.Addrs[NDIRECT] = 0
	}

	if ip.Addrs[NDIRECT+1] != 0 {
		b := fs.bc.bread(ip.dev, ip.Addrs[NDIRECT+1])
		outer := make([]uint32, NINDIRECT)
		for i := range outer {
			off := i * 4
			outer[i] = fs.sb.order.Uint32(b.data[off : off+4])
		}
		fs.bc.brelse(b)
		for _, addr := range outer {
			if addr != 0 {
				fs.freeIndirectBlock(ip.dev, addr)
			}
		}
		fs.bfree(ip.Addrs[NDIRECT+1])
		ip.Addrs[NDIRECT+1] = 0
	}

	ip.Size = 0
	fs.Iupdate(ip)
}

// IndirectBlockAddrs reads the NINDIRECT block addresses stored in the
// indirect block at addr, without allocating anything — unlike Bmap, safe
// to call from a read-only tool like tinyfsfsck walking a mounted device
// it must not modify.
func (fs *FileSystem) IndirectBlockAddrs(dev, addr uint32) []uint32 {
	b := fs.bc.bread(dev, addr)
	defer fs.bc.brelse(b)
	out := make([]uint32, NINDIRECT)
	for i := range out {
		off := i * 4
		out[i] = fs.sb.order.Uint32(b.data[off : off+4])
	}
	return out
}

// freeIndirectBlock frees every non-zero block address held in the
// indirect block at addr, then frees addr itself.
func (fs *FileSystem) freeIndirectBlock(dev, addr uint32) {
	b := fs.bc.bread(dev, addr)
	addrs := make([]uint32, NINDIRECT)
	for i := range addrs {
		off := i * 4
		addrs[i] = fs.sb.order.Uint32(b.data[off : off+4])
	}
	fs.bc.brelse(b)
	for _, a := range addrs {
		if a != 0 {
			fs.bfree(a)
		}
	}
	fs.bfree(addr)
}
