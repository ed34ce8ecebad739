package tinyfs

// Inode is the in-memory inode cache entry (spec.md §3). Its invariants,
// exactly as spec.md states them:
//
//  (i)   ref>0 iff the slot is live
//  (ii)  valid==true iff on-disk fields have been loaded
//  (iii) fields other than ref/dev/inum may be read/written only while
//        lock is held
//  (iv)  ref, dev, inum may be read/written only while icache.lock is held
//  (v)   at most one cache entry per (dev, inum) with ref>0
type Inode struct {
	dev  uint32
	inum uint32

	ref   int // guarded by the owning inodeCache's lock
	valid bool
	lock  sleeplock

	Type  int16
	Major int16
	Minor int16
	NLink int16
	Size  uint32
	Addrs [NDIRECT + 2]uint32
}

// inodeCache is the fixed NINODE-entry table backing Iget, guarded by one
// spinlock (spec.md §4.4).
type inodeCache struct {
	lock  spinlock
	nodes []Inode
}

func newInodeCache(n int) *inodeCache {
	return &inodeCache{nodes: make([]Inode, n)}
}

// Iget scans the cache for a live (dev, inum) entry, or else claims an
// empty slot and marks it not-yet-loaded. Never touches the disk; panics
// if every slot is in use (spec.md §4.4, §7.2).
func (fs *FileSystem) Iget(dev, inum uint32) *Inode {
	ic := fs.icache
	ic.lock.lock()
	defer ic.lock.unlock()

	var empty *Inode
	for i := range ic.nodes {
		ip := &ic.nodes[i]
		if ip.ref > 0 && ip.dev == dev && ip.inum == inum {
			ip.ref++
			return ip
		}
		if empty == nil && ip.ref == 0 {
			empty = ip
		}
	}
	if empty == nil {
		fatalf("Iget", "no free inode cache slots")
	}
	empty.dev = dev
	empty.inum = inum
	empty.ref = 1
	empty.valid = false
	return empty
}

// Idup increments an inode's reference count and returns it, for callers
// that want to hold their own independent reference to an inode someone
// else already has open.
func (fs *FileSystem) Idup(ip *Inode) *Inode {
	fs.icache.lock.lock()
	ip.ref++
	fs.icache.lock.unlock()
	return ip
}

// Ilock acquires ip's sleep-lock and, the first time, loads its fields
// from disk. Panics if the on-disk type is 0 (unallocated) — loading an
// unallocated inode's in-memory fields is a structural invariant
// violation, not a reportable condition (spec.md §4.4, §7.2).
func (fs *FileSystem) Ilock(ip *Inode) {
	ip.lock.acquire()
	if ip.valid {
		return
	}
	block, off := inodeBlockOffset(fs.sb, ip.inum)
	b := fs.bc.bread(ip.dev, block)
	var d dinode
	d.unmarshal(b.data[off:off+dinodeSize], fs.sb.order)
	fs.bc.brelse(b)

	if d.Type == 0 {
		fatalf("Ilock", "inode %d has no type (unallocated)", ip.inum)
	}
	ip.Type = d.Type
	ip.Major = d.Major
	ip.Minor = d.Minor
	ip.NLink = d.NLink
	ip.Size = d.Size
	ip.Addrs = d.Addrs
	ip.valid = true
}

// Iunlock releases ip's sleep-lock.
func (fs *FileSystem) Iunlock(ip *Inode) {
	ip.lock.release()
}

// Iput drops one reference to ip. If this was the last reference to a
// loaded inode whose link count has reached zero, the inode is
// destroyed: truncated, its on-disk type zeroed, and its in-memory slot
// marked invalid so a later Iget must reload from disk. Must run inside
// a transaction, since destruction performs logged writes.
func (fs *FileSystem) Iput(ip *Inode) {
	ic := fs.icache

	ic.lock.lock()
	if ip.ref == 1 && ip.valid && ip.NLink == 0 {
		// About to free: acquire the sleep-lock (guaranteed not to
		// block, since we are the last reference), then drop the cache
		// spinlock while doing logged I/O, per spec.md §4.4.
		ic.lock.unlock()

		ip.lock.acquire()
		fs.Itrunc(ip)
		ip.Type = 0
		fs.Iupdate(ip)
		ip.valid = false
		ip.lock.release()

		ic.lock.lock()
	}
	ip.ref--
	ic.lock.unlock()
}

// IunlockPut is the common Iunlock+Iput sequence.
func (fs *FileSystem) IunlockPut(ip *Inode) {
	fs.Iunlock(ip)
	fs.Iput(ip)
}

// Iupdate writes ip's in-memory fields through to its on-disk inode
// slot. Must run inside a transaction.
func (fs *FileSystem) Iupdate(ip *Inode) {
	block, off := inodeBlockOffset(fs.sb, ip.inum)
	b := fs.bc.bread(ip.dev, block)
	d := dinode{
		Type:  ip.Type,
		Major: ip.Major,
		Minor: ip.Minor,
		NLink: ip.NLink,
		Size:  ip.Size,
		Addrs: ip.Addrs,
	}
	d.marshal(b.data[off:off+dinodeSize], fs.sb.order)
	fs.log.write(b)
	fs.bc.brelse(b)
}

// Ialloc scans the on-disk inode table for a free (type==0) slot, claims
// it for typ, and returns a cached handle via Iget. Must run inside a
// transaction. Panics if no inode is free.
func (fs *FileSystem) Ialloc(typ int16) *Inode {
	for inum := uint32(1); inum < fs.sb.NInodes; inum++ {
		block, off := inodeBlockOffset(fs.sb, inum)
		b := fs.bc.bread(fs.dev, block)
		var d dinode
		d.unmarshal(b.data[off:off+dinodeSize], fs.sb.order)
		if d.Type != 0 {
			fs.bc.brelse(b)
			continue
		}
		d = dinode{Type: typ}
		d.marshal(b.data[off:off+dinodeSize], fs.sb.order)
		fs.log.write(b)
		fs.bc.brelse(b)
		return fs.Iget(fs.dev, inum)
	}
	fatalf("Ialloc", "no free inodes")
	return nil
}

// Stat is the result of Stati: the subset of an inode's metadata a
// syscall-layer stat(2) call needs, named in spec.md §6 but left
// undetailed there.
type Stat struct {
	Dev   uint32
	Inum  uint32
	Type  int16
	NLink int16
	Size  uint64
}

// Stati reads ip's metadata under its already-held lock.
func (fs *FileSystem) Stati(ip *Inode) Stat {
	return Stat{Dev: ip.dev, Inum: ip.inum, Type: ip.Type, NLink: ip.NLink, Size: uint64(ip.Size)}
}

// IsDir reports whether ip is a directory.
func (ip *Inode) IsDir() bool { return ip.Type == T_DIR }

// Inum returns ip's inode number.
func (ip *Inode) Inum() uint32 { return ip.inum }
