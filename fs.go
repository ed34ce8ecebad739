package tinyfs

// FileSystem is the single mounted instance tying together the buffer
// cache, log, inode cache, and superblock (spec.md §9's "global mutable
// state" note: model log/bcache/icache as owned by one value threaded
// through every entry point, not as package-level singletons).
//
// Initialization order matches spec.md §9: buffer cache, then log
// (which may replay), then inode cache.
type FileSystem struct {
	dev    uint32 // this module supports exactly one device, per spec.md §1 non-goals
	device BlockDevice
	sb     *Superblock
	bc     *bufCache
	log    *txLog
	icache *inodeCache
}

const defaultDev uint32 = 1

// Mount opens a formatted BlockDevice, replaying its log if a committed
// transaction was not fully installed before the previous session ended.
func Mount(device BlockDevice, opts ...MountOption) (*FileSystem, error) {
	cfg := defaultMountConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	sb, err := readSuperblock(device)
	if err != nil {
		return nil, err
	}

	fs := &FileSystem{
		dev:    defaultDev,
		device: device,
		sb:     sb,
		bc:     newBufCache(device, cfg.nbuf),
		icache: newInodeCache(cfg.ninode),
	}
	fs.log = newTxLog(fs.bc, fs.dev, sb.LogStart, sb.NLog)
	fs.log.recover()

	return fs, nil
}

// Close flushes and releases the underlying device.
func (fs *FileSystem) Close() error {
	if err := fs.device.Sync(); err != nil {
		return err
	}
	return fs.device.Close()
}

// Superblock returns the mounted filesystem's immutable layout record.
func (fs *FileSystem) Superblock() *Superblock { return fs.sb }

// BeginOp brackets the start of a file-system operation that may touch
// the log (spec.md §4.2). Every BeginOp must be matched by an EndOp,
// even if the operation fails partway through: the log has no notion of
// a partial logical operation, so a caller that errors out mid-operation
// still must call EndOp (spec.md §7).
func (fs *FileSystem) BeginOp() { fs.log.beginOp() }

// EndOp closes a file-system operation opened with BeginOp, committing
// the transaction if this was the last concurrently open operation.
func (fs *FileSystem) EndOp() { fs.log.endOp() }

// RootInode returns a fresh reference to the filesystem root directory.
func (fs *FileSystem) RootInode() *Inode {
	return fs.Iget(fs.dev, rootInum)
}
