package tinyfs

// FormatConfig describes a fresh on-disk layout for Format (spec.md §6,
// scenario S1). Every field mirrors an on-disk Superblock field
// directly; Format computes nothing about layout itself — choosing
// offsets that respect spec.md's block ordering (log, then inodes, then
// bitmap, then data) is the caller's job, typically the mkfs command.
type FormatConfig struct {
	Size       uint32 // total blocks on the device
	NBlocks    uint32 // data blocks
	NInodes    uint32
	NLog       uint32
	LogStart   uint32
	InodeStart uint32
	BmapStart  uint32
}

// ComputeLayout derives a FormatConfig from the three quantities a caller
// actually wants to choose (data blocks, inode slots, log payload
// capacity), working out the block offsets spec.md §6 fixes in order
// (boot block 0, superblock at block 1, then log, inodes, bitmap, data)
// and sizing the bitmap to cover
// the whole device rather than just the data region, since balloc scans
// by absolute block number (spec.md §9).
func ComputeLayout(nblocks, ninodes, nlogPayload uint32) FormatConfig {
	nlog := nlogPayload + 1 // +1 for the header block
	nInodeBlocks := (ninodes + IPB - 1) / IPB

	nBitmapBlocks := uint32(1)
	var size uint32
	for i := 0; i < 4; i++ {
		size = 2 + nlog + nInodeBlocks + nBitmapBlocks + nblocks
		next := (size + BPB - 1) / BPB
		if next == nBitmapBlocks {
			break
		}
		nBitmapBlocks = next
	}

	return FormatConfig{
		Size:       size,
		NBlocks:    nblocks,
		NInodes:    ninodes,
		NLog:       nlog,
		LogStart:   2,
		InodeStart: 2 + nlog,
		BmapStart:  2 + nlog + nInodeBlocks,
	}
}

// Format writes a fresh superblock, a zeroed log region (an all-zero
// header means n==0, no pending transaction), a zeroed inode table, and
// a zeroed bitmap, then mounts the result and creates the root
// directory: inode 1, type T_DIR, containing "." and ".." entries
// pointing at itself. This is spec.md §8 scenario S1.
func Format(device BlockDevice, cfg FormatConfig) (*FileSystem, error) {
	sb := &Superblock{
		Magic:      FSMAGIC,
		Size:       cfg.Size,
		NBlocks:    cfg.NBlocks,
		NInodes:    cfg.NInodes,
		NLog:       cfg.NLog,
		LogStart:   cfg.LogStart,
		InodeStart: cfg.InodeStart,
		BmapStart:  cfg.BmapStart,
	}
	if err := writeSuperblock(device, sb); err != nil {
		return nil, err
	}

	zero := make([]byte, BSIZE)
	for b := cfg.LogStart; b < cfg.LogStart+cfg.NLog; b++ {
		if err := device.WriteBlock(b, zero); err != nil {
			return nil, err
		}
	}
	nInodeBlocks := (cfg.NInodes + IPB - 1) / IPB
	for b := cfg.InodeStart; b < cfg.InodeStart+nInodeBlocks; b++ {
		if err := device.WriteBlock(b, zero); err != nil {
			return nil, err
		}
	}
	// The bitmap indexes every block on the device (balloc scans up to
	// sb.Size, not just the data region), so it is sized off cfg.Size,
	// not cfg.NBlocks.
	nBitmapBlocks := (cfg.Size + BPB - 1) / BPB
	for b := cfg.BmapStart; b < cfg.BmapStart+nBitmapBlocks; b++ {
		if err := device.WriteBlock(b, zero); err != nil {
			return nil, err
		}
	}

	// Mark every block before the data region (superblock, log, inode
	// table, bitmap itself) as allocated, so balloc (which scans the
	// whole device, spec.md §9) never hands one of them out. Mirrors
	// xv6 mkfs's balloc(nmeta) pre-marking pass.
	dataStart := cfg.BmapStart + nBitmapBlocks
	if err := markBlocksUsed(device, cfg.BmapStart, dataStart); err != nil {
		return nil, err
	}

	fs, err := Mount(device)
	if err != nil {
		return nil, err
	}

	fs.BeginOp()
	root := fs.Ialloc(T_DIR)
	fs.Ilock(root)
	root.NLink = 1
	fs.Iupdate(root)
	if err := fs.Dirlink(root, ".", root.Inum()); err != nil {
		fs.Iunlock(root)
		fs.EndOp()
		return nil, err
	}
	if err := fs.Dirlink(root, "..", root.Inum()); err != nil {
		fs.Iunlock(root)
		fs.EndOp()
		return nil, err
	}
	fs.Iunlock(root)
	fs.Iput(root)
	fs.EndOp()

	return fs, nil
}

// markBlocksUsed sets the bitmap bit for every absolute block number in
// [0, dataStart) directly on device, bypassing the log: this runs before
// Mount, while there is no log to write through yet, and plain sequential
// writes are as crash-safe as mkfs needs to be (a half-written bitmap here
// just means re-running mkfs, not a live filesystem losing data).
func markBlocksUsed(device BlockDevice, bmapStart, dataStart uint32) error {
	buf := make([]byte, BSIZE)
	curBlock := uint32(0xffffffff)
	for blk := uint32(0); blk < dataStart; blk++ {
		bitmapBlock := bmapStart + blk/BPB
		if bitmapBlock != curBlock {
			if curBlock != 0xffffffff {
				if err := device.WriteBlock(curBlock, buf); err != nil {
					return err
				}
			}
			if err := device.ReadBlock(bitmapBlock, buf); err != nil {
				return err
			}
			curBlock = bitmapBlock
		}
		bi := blk % BPB
		buf[bi/8] |= 1 << (bi % 8)
	}
	if curBlock != 0xffffffff {
		if err := device.WriteBlock(curBlock, buf); err != nil {
			return err
		}
	}
	return nil
}
