// Command tinyfsmount exposes a mounted tinyfs device to the host OS
// through FUSE, using go-fuse v2's node API (fs.Inode /
// fs.NodeLookuper / fs.NodeReaddirer / fs.NodeOpener): unlike the
// read-only squashfs image this module's FUSE layer was grounded on,
// tinyfs is writable, so operations route through Dirlookup/Dirlink/Writei
// instead of a one-shot decode of an immutable archive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/tinykernel/tinyfs"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tinyfsmount <device-file> <mountpoint>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}
	devicePath, mountpoint := flag.Arg(0), flag.Arg(1)

	tfs, err := tinyfs.MountWithMmap(devicePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	root := &tinyfsNode{fs: tfs, inum: tfs.RootInode().Inum()}
	server, err := fs.Mount(mountpoint, root, &fs.Options{
		MountOptions: fuse.MountOptions{FsName: "tinyfs", Name: "tinyfs"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: mount failed: %s\n", err)
		os.Exit(1)
	}

	log.Printf("tinyfs mounted at %s", mountpoint)
	server.Wait()
	if err := tfs.Close(); err != nil {
		log.Printf("close device: %s", err)
	}
}

// tinyfsNode is one FUSE node backed by a tinyfs inode number. Every
// operation reopens the underlying inode with Iget/Ilock rather than
// holding one open across calls, matching the core's own "cheap to
// reacquire, expensive to hold" design (spec.md §4.4's ref-counted cache).
type tinyfsNode struct {
	fs.Inode

	mu   sync.Mutex
	fs   *tinyfs.FileSystem
	inum uint32
}

var _ fs.NodeLookuper = (*tinyfsNode)(nil)
var _ fs.NodeReaddirer = (*tinyfsNode)(nil)
var _ fs.NodeGetattrer = (*tinyfsNode)(nil)
var _ fs.NodeOpener = (*tinyfsNode)(nil)
var _ fs.NodeReader = (*tinyfsNode)(nil)
var _ fs.NodeWriter = (*tinyfsNode)(nil)
var _ fs.NodeCreater = (*tinyfsNode)(nil)
var _ fs.NodeMkdirer = (*tinyfsNode)(nil)

func (n *tinyfsNode) inode() *tinyfs.Inode {
	return n.fs.Iget(n.rootDev(), n.inum)
}

func (n *tinyfsNode) rootDev() uint32 {
	root := n.fs.RootInode()
	defer n.fs.Iput(root)
	return n.fs.Stati(root).Dev
}

func fillAttr(st tinyfs.Stat, out *fuse.Attr) {
	out.Ino = uint64(st.Inum)
	out.Size = st.Size
	out.Nlink = uint32(st.NLink)
	if st.Type == tinyfs.T_DIR {
		out.Mode = fuse.S_IFDIR | 0755
	} else {
		out.Mode = fuse.S_IFREG | 0644
	}
}

func (n *tinyfsNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	ip := n.inode()
	n.fs.Ilock(ip)
	st := n.fs.Stati(ip)
	n.fs.IunlockPut(ip)
	fillAttr(st, &out.Attr)
	return 0
}

func (n *tinyfsNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	dp := n.inode()
	n.fs.Ilock(dp)
	child, _, err := n.fs.Dirlookup(dp, name)
	n.fs.IunlockPut(dp)
	if err != nil {
		return nil, syscall.ENOENT
	}
	n.fs.Ilock(child)
	st := n.fs.Stati(child)
	n.fs.IunlockPut(child)
	fillAttr(st, &out.Attr)

	childNode := &tinyfsNode{fs: n.fs, inum: st.Inum}
	mode := uint32(fuse.S_IFREG)
	if st.Type == tinyfs.T_DIR {
		mode = fuse.S_IFDIR
	}
	return n.NewInode(ctx, childNode, fs.StableAttr{Mode: mode, Ino: uint64(st.Inum)}), 0
}

func (n *tinyfsNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	dp := n.inode()
	n.fs.Ilock(dp)
	entries := n.fs.Readdir(dp)
	n.fs.IunlockPut(dp)

	list := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		list = append(list, fuse.DirEntry{Name: e.Name, Ino: uint64(e.Inum)})
	}
	return fs.NewListDirStream(list), 0
}

func (n *tinyfsNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *tinyfsNode) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	ip := n.inode()
	n.fs.Ilock(ip)
	defer n.fs.IunlockPut(ip)
	nread, err := n.fs.Readi(ip, dest, uint32(off))
	if err != nil {
		return nil, syscall.EIO
	}
	return fuse.ReadResultData(dest[:nread]), 0
}

func (n *tinyfsNode) Write(ctx context.Context, f fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	ip := n.inode()
	n.fs.Ilock(ip)
	defer n.fs.IunlockPut(ip)

	n.fs.BeginOp()
	defer n.fs.EndOp()
	written, err := n.fs.Writei(ip, data, uint32(off))
	if err != nil {
		return 0, syscall.EIO
	}
	return uint32(written), 0
}

func (n *tinyfsNode) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.fs.BeginOp()
	dp := n.inode()
	n.fs.Ilock(dp)
	file := n.fs.Ialloc(tinyfs.T_FILE)
	n.fs.Ilock(file)
	file.NLink = 1
	n.fs.Iupdate(file)
	err := n.fs.Dirlink(dp, name, file.Inum())
	st := n.fs.Stati(file)
	n.fs.IunlockPut(file)
	n.fs.IunlockPut(dp)
	n.fs.EndOp()

	if err != nil {
		return nil, nil, 0, syscall.EEXIST
	}

	fillAttr(st, &out.Attr)
	childNode := &tinyfsNode{fs: n.fs, inum: st.Inum}
	child := n.NewInode(ctx, childNode, fs.StableAttr{Mode: fuse.S_IFREG, Ino: uint64(st.Inum)})
	return child, nil, 0, 0
}

func (n *tinyfsNode) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.fs.BeginOp()
	dp := n.inode()
	n.fs.Ilock(dp)
	d := n.fs.Ialloc(tinyfs.T_DIR)
	n.fs.Ilock(d)
	d.NLink = 1
	n.fs.Iupdate(d)
	n.fs.Dirlink(d, ".", d.Inum())
	n.fs.Dirlink(d, "..", dp.Inum())
	err := n.fs.Dirlink(dp, name, d.Inum())
	st := n.fs.Stati(d)
	n.fs.IunlockPut(d)
	n.fs.IunlockPut(dp)
	n.fs.EndOp()

	if err != nil {
		return nil, syscall.EEXIST
	}

	fillAttr(st, &out.Attr)
	childNode := &tinyfsNode{fs: n.fs, inum: st.Inum}
	return n.NewInode(ctx, childNode, fs.StableAttr{Mode: fuse.S_IFDIR, Ino: uint64(st.Inum)}), 0
}
