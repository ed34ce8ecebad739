package tinyfs

import "strings"

// skipelem strips leading slashes from path, copies the next component
// (truncated to DIRSIZ bytes, matching the on-disk name width), and
// returns it along with the remainder of path (also with leading
// slashes stripped). Returns ("", "") once path is exhausted.
func skipelem(path string) (elem, rest string) {
	for len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	if len(path) == 0 {
		return "", ""
	}
	i := strings.IndexByte(path, '/')
	if i == -1 {
		elem, rest = path, ""
	} else {
		elem, rest = path[:i], path[i:]
	}
	for len(rest) > 0 && rest[0] == '/' {
		rest = rest[1:]
	}
	if len(elem) > DIRSIZ {
		elem = elem[:DIRSIZ]
	}
	return elem, rest
}

// namex walks path one component at a time, starting from the root if
// path begins with "/" or from cwd otherwise (both cases take a fresh
// reference via Iget/Idup). At most one directory is locked at a time
// during the walk, which is what makes two processes resolving crossing
// paths deadlock-free (spec.md §4.5, §8 property 6): namex never holds
// a parent's lock while looking at (or locking) a child.
//
// If nameiparent is true and the walk reaches the final component,
// namex returns the parent directory inode, unlocked but still
// referenced, along with that final component's name. Otherwise it
// returns the resolved inode for the full path. Returns (nil, "") on any
// failure (a non-directory encountered mid-path, a missing component, or
// — for nameiparent — an empty path, which has no parent).
func (fs *FileSystem) namex(path string, nameiparent bool, cwd *Inode) (*Inode, string) {
	var ip *Inode
	if strings.HasPrefix(path, "/") {
		ip = fs.Iget(fs.dev, rootInum)
	} else {
		ip = fs.Idup(cwd)
	}

	for {
		elem, rest := skipelem(path)
		if elem == "" {
			break
		}
		path = rest

		fs.Ilock(ip)
		if ip.Type != T_DIR {
			fs.IunlockPut(ip)
			return nil, ""
		}

		if nameiparent && path == "" {
			fs.Iunlock(ip)
			return ip, elem
		}

		next, _, err := fs.Dirlookup(ip, elem)
		if err != nil {
			fs.IunlockPut(ip)
			return nil, ""
		}
		fs.IunlockPut(ip)
		ip = next
	}

	if nameiparent {
		fs.Iput(ip)
		return nil, ""
	}
	return ip, ""
}

// Namei resolves path to an inode, relative to cwd when path is not
// rooted.
func (fs *FileSystem) Namei(path string, cwd *Inode) (*Inode, error) {
	ip, _ := fs.namex(path, false, cwd)
	if ip == nil {
		return nil, ErrNotFound
	}
	return ip, nil
}

// NameiParent resolves all but the last component of path to an inode
// (the parent directory, unlocked but referenced) and returns the final
// component's name for the caller to Dirlookup/Dirlink itself.
func (fs *FileSystem) NameiParent(path string, cwd *Inode) (*Inode, string, error) {
	ip, name := fs.namex(path, true, cwd)
	if ip == nil {
		return nil, "", ErrNotFound
	}
	return ip, name, nil
}
