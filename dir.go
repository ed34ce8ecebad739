package tinyfs

// Dirlookup scans dp's content one entry at a time, skipping empty slots
// (Inum==0), and returns a freshly Iget'd inode for the first entry
// matching name, plus that entry's byte offset. dp.lock must already be
// held. Panics if dp is not a directory (spec.md §4.5).
func (fs *FileSystem) Dirlookup(dp *Inode, name string) (*Inode, uint32, error) {
	if dp.Type != T_DIR {
		fatalf("Dirlookup", "inode %d is not a directory", dp.inum)
	}

	buf := make([]byte, direntSize)
	var de dirent
	for off := uint32(0); off < dp.Size; off += direntSize {
		n, err := fs.Readi(dp, buf, off)
		if err != nil || n != direntSize {
			fatalf("Dirlookup", "short directory read at offset %d", off)
		}
		de.unmarshal(buf, fs.sb.order)
		if de.Inum == 0 {
			continue
		}
		if namecmp(name, &de) {
			return fs.Iget(dp.dev, uint32(de.Inum)), off, nil
		}
	}
	return nil, 0, ErrNotFound
}

// namecmp compares name against a directory entry's (possibly
// unterminated, DIRSIZ-bounded) name field.
func namecmp(name string, de *dirent) bool {
	return de.name() == name
}

// Dirlink adds an entry mapping name to inum in directory dp, refusing
// to create a duplicate (checked via Dirlookup, which Iputs its result
// on a hit). It reuses the first empty slot if one exists, or appends.
// dp.lock must already be held (spec.md §4.5).
func (fs *FileSystem) Dirlink(dp *Inode, name string, inum uint32) error {
	if existing, _, err := fs.Dirlookup(dp, name); err == nil {
		fs.Iput(existing)
		return ErrExists
	}

	buf := make([]byte, direntSize)
	var de dirent
	off := uint32(0)
	for ; off < dp.Size; off += direntSize {
		n, err := fs.Readi(dp, buf, off)
		if err != nil || n != direntSize {
			fatalf("Dirlink", "short directory read at offset %d", off)
		}
		de.unmarshal(buf, fs.sb.order)
		if de.Inum == 0 {
			break
		}
	}

	de = dirent{Inum: uint16(inum)}
	de.setName(name)
	de.marshal(buf, fs.sb.order)
	if n, err := fs.Writei(dp, buf, off); err != nil || n != direntSize {
		fatalf("Dirlink", "short directory write at offset %d", off)
	}
	return nil
}

// DirEntry is one non-empty slot of a directory's content, returned by
// Readdir.
type DirEntry struct {
	Name string
	Inum uint32
}

// Readdir lists every non-empty entry of dp (already locked, a directory),
// in on-disk order. Not itself named in spec.md's operation list, but a
// direct consequence of the directory format needed by any caller that
// walks the tree rather than looking up one name at a time (fsck, a FUSE
// NodeReaddirer).
func (fs *FileSystem) Readdir(dp *Inode) []DirEntry {
	if dp.Type != T_DIR {
		fatalf("Readdir", "inode %d is not a directory", dp.inum)
	}

	buf := make([]byte, direntSize)
	var de dirent
	var entries []DirEntry
	for off := uint32(0); off < dp.Size; off += direntSize {
		n, err := fs.Readi(dp, buf, off)
		if err != nil || n != direntSize {
			fatalf("Readdir", "short directory read at offset %d", off)
		}
		de.unmarshal(buf, fs.sb.order)
		if de.Inum == 0 {
			continue
		}
		entries = append(entries, DirEntry{Name: de.name(), Inum: uint32(de.Inum)})
	}
	return entries
}

// isDirEmpty reports whether dp (already locked, a directory) has no
// entries besides "." and ".." (assumed to occupy the first two slots). Used by callers implementing rmdir-style
// removal on top of this core; not itself part of spec.md's operation
// list but a direct, one-line consequence of the directory format.
func (fs *FileSystem) isDirEmpty(dp *Inode) bool {
	buf := make([]byte, direntSize)
	var de dirent
	for off := uint32(2 * direntSize); off < dp.Size; off += direntSize {
		n, err := fs.Readi(dp, buf, off)
		if err != nil || n != direntSize {
			fatalf("isDirEmpty", "short directory read at offset %d", off)
		}
		de.unmarshal(buf, fs.sb.order)
		if de.Inum != 0 {
			return false
		}
	}
	return true
}
