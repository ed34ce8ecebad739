package tinyfs

import "testing"

func TestSkipelem(t *testing.T) {
	cases := []struct {
		path     string
		wantElem string
		wantRest string
	}{
		{"a/bb/c", "a", "bb/c"},
		{"///a//bb", "a", "bb"},
		{"a", "a", ""},
		{"", "", ""},
		{"/", "", ""},
	}
	for _, c := range cases {
		elem, rest := skipelem(c.path)
		if elem != c.wantElem || rest != c.wantRest {
			t.Errorf("skipelem(%q) = (%q, %q), want (%q, %q)", c.path, elem, rest, c.wantElem, c.wantRest)
		}
	}
}

func TestSkipelemTruncatesLongNames(t *testing.T) {
	long := "abcdefghijklmnopqrstuvwxyz"
	elem, _ := skipelem(long)
	if len(elem) != DIRSIZ {
		t.Fatalf("expected elem truncated to %d bytes, got %d", DIRSIZ, len(elem))
	}
	if elem != long[:DIRSIZ] {
		t.Fatalf("expected prefix %q, got %q", long[:DIRSIZ], elem)
	}
}

func TestNameiResolvesNestedPath(t *testing.T) {
	fs, _, _ := mustFormat(t, 200, 50, LOGSIZE)

	fs.BeginOp()
	root := fs.RootInode()
	fs.Ilock(root)
	sub := fs.Ialloc(T_DIR)
	fs.Ilock(sub)
	sub.NLink = 1
	fs.Iupdate(sub)
	if err := fs.Dirlink(sub, ".", sub.Inum()); err != nil {
		t.Fatalf("Dirlink .: %v", err)
	}
	if err := fs.Dirlink(sub, "..", root.Inum()); err != nil {
		t.Fatalf("Dirlink ..: %v", err)
	}
	if err := fs.Dirlink(root, "sub", sub.Inum()); err != nil {
		t.Fatalf("Dirlink sub: %v", err)
	}
	leaf := fs.Ialloc(T_FILE)
	fs.Ilock(leaf)
	leaf.NLink = 1
	fs.Iupdate(leaf)
	if err := fs.Dirlink(sub, "leaf", leaf.Inum()); err != nil {
		t.Fatalf("Dirlink leaf: %v", err)
	}
	fs.Iunlock(leaf)
	fs.Iput(leaf)
	fs.Iunlock(sub)
	fs.Iput(sub)
	fs.Iunlock(root)
	fs.Iput(root)
	fs.EndOp()

	ip, err := fs.Namei("/sub/leaf", fs.RootInode())
	if err != nil {
		t.Fatalf("Namei: %v", err)
	}
	defer fs.Iput(ip)
	if ip.Inum() != leaf.Inum() {
		t.Fatalf("expected inum %d, got %d", leaf.Inum(), ip.Inum())
	}
}

func TestNameiParentSplitsFinalComponent(t *testing.T) {
	fs, _, _ := mustFormat(t, 200, 50, LOGSIZE)

	dp, name, err := fs.NameiParent("/newfile", fs.RootInode())
	if err != nil {
		t.Fatalf("NameiParent: %v", err)
	}
	defer fs.Iput(dp)
	if name != "newfile" {
		t.Fatalf("expected final component %q, got %q", "newfile", name)
	}
	if dp.Inum() != rootInum {
		t.Fatalf("expected parent to be root, got inum %d", dp.Inum())
	}
}

func TestNameiNotFound(t *testing.T) {
	fs, _, _ := mustFormat(t, 200, 50, LOGSIZE)
	if _, err := fs.Namei("/nope", fs.RootInode()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNameiThroughNonDirectoryFails(t *testing.T) {
	fs, _, _ := mustFormat(t, 200, 50, LOGSIZE)

	fs.BeginOp()
	root := fs.RootInode()
	fs.Ilock(root)
	file := fs.Ialloc(T_FILE)
	fs.Ilock(file)
	file.NLink = 1
	fs.Iupdate(file)
	if err := fs.Dirlink(root, "f", file.Inum()); err != nil {
		t.Fatalf("Dirlink: %v", err)
	}
	fs.Iunlock(file)
	fs.Iput(file)
	fs.Iunlock(root)
	fs.Iput(root)
	fs.EndOp()

	if _, err := fs.Namei("/f/x", fs.RootInode()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound walking through a file, got %v", err)
	}
}
