package tinyfs

import (
	"bytes"
	"testing"
)

// mustFormat formats a small in-memory filesystem and fails the test on
// error, for tests that only care about the state after formatting.
func mustFormat(t *testing.T, nblocks, ninodes, nlog uint32) (*FileSystem, *memDevice, FormatConfig) {
	t.Helper()
	dev, cfg := formatMemDevice(nblocks, ninodes, nlog)
	fs, err := Format(dev, cfg)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	return fs, dev, cfg
}

// TestFormatScenarioS1 covers spec.md §8 scenario S1: a freshly formatted
// device mounts with a root directory containing "." and ".." pointing at
// itself.
func TestFormatScenarioS1(t *testing.T) {
	fs, _, _ := mustFormat(t, 200, 50, LOGSIZE)

	root := fs.RootInode()
	fs.Ilock(root)
	defer fs.IunlockPut(root)

	if !root.IsDir() {
		t.Fatalf("expected root to be a directory, got type %d", root.Type)
	}
	if root.Inum() != rootInum {
		t.Fatalf("expected root inum %d, got %d", rootInum, root.Inum())
	}

	dot, _, err := fs.Dirlookup(root, ".")
	if err != nil {
		t.Fatalf("Dirlookup(.): %v", err)
	}
	defer fs.Iput(dot)
	if dot.Inum() != rootInum {
		t.Fatalf("expected \".\" to point at root, got inum %d", dot.Inum())
	}

	dotdot, _, err := fs.Dirlookup(root, "..")
	if err != nil {
		t.Fatalf("Dirlookup(..): %v", err)
	}
	defer fs.Iput(dotdot)
	if dotdot.Inum() != rootInum {
		t.Fatalf("expected \"..\" to point at root, got inum %d", dotdot.Inum())
	}
}

// TestScenarioCreateFileWriteReadBack covers creating a file under root,
// writing content, and reading it back through Namei, mirroring spec.md
// §8's create/write/read scenario.
func TestScenarioCreateFileWriteReadBack(t *testing.T) {
	fs, _, _ := mustFormat(t, 200, 50, LOGSIZE)

	fs.BeginOp()
	root := fs.RootInode()
	fs.Ilock(root)
	file := fs.Ialloc(T_FILE)
	fs.Ilock(file)
	file.NLink = 1
	fs.Iupdate(file)
	if err := fs.Dirlink(root, "hello.txt", file.Inum()); err != nil {
		t.Fatalf("Dirlink: %v", err)
	}
	content := []byte("hello, tinyfs")
	if _, err := fs.Writei(file, content, 0); err != nil {
		t.Fatalf("Writei: %v", err)
	}
	fs.Iunlock(file)
	fs.Iput(file)
	fs.Iunlock(root)
	fs.Iput(root)
	fs.EndOp()

	ip, err := fs.Namei("/hello.txt", fs.RootInode())
	if err != nil {
		t.Fatalf("Namei: %v", err)
	}
	fs.Ilock(ip)
	defer fs.IunlockPut(ip)

	buf := make([]byte, len(content))
	n, err := fs.Readi(ip, buf, 0)
	if err != nil {
		t.Fatalf("Readi: %v", err)
	}
	if !bytes.Equal(buf[:n], content) {
		t.Fatalf("expected %q, got %q", content, buf[:n])
	}
}

// TestScenarioDestroyFreesBlocks covers spec.md §8's destruction scenario:
// dropping the last reference to an unlinked inode frees its data blocks
// back to the allocator and zeroes its on-disk type.
func TestScenarioDestroyFreesBlocks(t *testing.T) {
	fs, _, _ := mustFormat(t, 200, 50, LOGSIZE)

	fs.BeginOp()
	file := fs.Ialloc(T_FILE)
	fs.Ilock(file)
	file.NLink = 1
	fs.Iupdate(file)
	data := make([]byte, BSIZE*3)
	if _, err := fs.Writei(file, data, 0); err != nil {
		t.Fatalf("Writei: %v", err)
	}
	addrs := file.Addrs
	fs.Iunlock(file)
	fs.EndOp()

	allocatedBefore := map[uint32]bool{}
	for _, a := range addrs {
		if a != 0 {
			allocatedBefore[a] = true
		}
	}
	if len(allocatedBefore) == 0 {
		t.Fatalf("expected at least one allocated block")
	}

	fs.BeginOp()
	fs.Ilock(file)
	file.NLink = 0
	fs.Iupdate(file)
	fs.IunlockPut(file) // last ref + nlink==0 -> destroy
	fs.EndOp()

	// Every block that was allocated to the file must now be free, i.e.
	// the next balloc calls recycle them (smallest-first scan).
	fs.BeginOp()
	seen := map[uint32]bool{}
	for i := 0; i < len(allocatedBefore); i++ {
		b := fs.balloc()
		seen[b] = true
	}
	fs.EndOp()
	for a := range allocatedBefore {
		if !seen[a] {
			t.Fatalf("expected freed block %d to be reallocated, it wasn't", a)
		}
	}
}

// TestScenarioDirectoryDeadlockFree covers spec.md §8 property 6:
// concurrent lookups along different paths must not deadlock, since namex
// holds at most one inode lock at a time.
func TestScenarioDirectoryDeadlockFree(t *testing.T) {
	fs, _, _ := mustFormat(t, 200, 50, LOGSIZE)

	fs.BeginOp()
	root := fs.RootInode()
	fs.Ilock(root)
	for _, name := range []string{"a", "b"} {
		d := fs.Ialloc(T_DIR)
		fs.Ilock(d)
		d.NLink = 1
		fs.Iupdate(d)
		if err := fs.Dirlink(d, ".", d.Inum()); err != nil {
			t.Fatalf("Dirlink .: %v", err)
		}
		if err := fs.Dirlink(d, "..", root.Inum()); err != nil {
			t.Fatalf("Dirlink ..: %v", err)
		}
		if err := fs.Dirlink(root, name, d.Inum()); err != nil {
			t.Fatalf("Dirlink %s: %v", name, err)
		}
		fs.Iunlock(d)
		fs.Iput(d)
	}
	fs.Iunlock(root)
	fs.Iput(root)
	fs.EndOp()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			ip, err := fs.Namei("/a", fs.RootInode())
			if err == nil {
				fs.Iput(ip)
			}
		}
		close(done)
	}()
	for i := 0; i < 100; i++ {
		ip, err := fs.Namei("/b", fs.RootInode())
		if err == nil {
			fs.Iput(ip)
		}
	}
	<-done
}
