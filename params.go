package tinyfs

// Package tinyfs implements the storage and consistency core of a small
// teaching kernel's file system: a concurrent buffer cache, a write-ahead
// redo log providing crash atomicity, a bitmap block allocator, an inode
// layer with direct/indirect/doubly-indirect block maps, and a directory
// and path resolver. The block device, scheduler, and system-call
// dispatch are external collaborators; only BlockDevice's interface
// matters here.

const (
	// BSIZE is the fixed size in bytes of every disk block.
	BSIZE = 1024

	// FSMAGIC identifies a formatted tinyfs superblock.
	FSMAGIC = 0x10203040

	// NDIRECT is the number of direct block addresses stored in a dinode.
	NDIRECT = 11
	// NINDIRECT is the number of block addresses packed into one
	// indirect block.
	NINDIRECT = BSIZE / 4
	// MAXFILE is the largest file size, in blocks, addressable through
	// direct, singly-indirect and doubly-indirect maps.
	MAXFILE = NDIRECT + NINDIRECT + NINDIRECT*NINDIRECT

	// DIRSIZ bounds a path component / directory entry name.
	DIRSIZ = 14

	// dinodeSize is sizeof(dinode): four int16 fields, one uint32 size
	// field, and NDIRECT+2 uint32 block addresses.
	dinodeSize = 2*4 + 4 + (NDIRECT+2)*4
	// IPB is the number of packed on-disk inodes per inode block.
	IPB = BSIZE / dinodeSize

	// direntSize is sizeof(dirent): a uint16 inode number plus a
	// DIRSIZ-byte padded name.
	direntSize = 2 + DIRSIZ

	// BPB is the number of bitmap bits (blocks, by absolute block number)
	// tracked by one bitmap block.
	BPB = BSIZE * 8

	// NBUF is the number of slots in the buffer cache.
	NBUF = 30
	// NBUFMAP_BUCKET is the number of hash buckets the buffer cache is
	// partitioned across; a small prime, as spec.md §4.1 requires.
	NBUFMAP_BUCKET = 13

	// MAXOPBLOCKS is the maximum number of distinct blocks a single
	// file-system operation may log; it bounds the per-transaction
	// admission reservation in begin_op.
	MAXOPBLOCKS = 10
	// LOGSIZE is the maximum number of payload blocks the on-disk log
	// can hold at once.
	LOGSIZE = MAXOPBLOCKS * 3

	// NINODE is the number of slots in the in-memory inode cache.
	NINODE = 50

	// rootInum is the inode number of the filesystem root directory.
	rootInum = 1
)

// On-disk inode types (dinode.Type / Inode.Type). Zero means free.
const (
	T_DIR    int16 = 1
	T_FILE   int16 = 2
	T_DEVICE int16 = 3
)
