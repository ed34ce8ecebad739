package tinyfs

import "testing"

func TestIgetSameSlotForSameInum(t *testing.T) {
	fs, _, _ := mustFormat(t, 200, 50, LOGSIZE)

	a := fs.Iget(fs.dev, rootInum)
	b := fs.Iget(fs.dev, rootInum)
	defer fs.Iput(a)
	defer fs.Iput(b)

	if a != b {
		t.Fatalf("expected Iget to return the same cache slot for a live (dev,inum), got distinct pointers")
	}
}

func TestIallocThenIlockLoadsFields(t *testing.T) {
	fs, _, _ := mustFormat(t, 200, 50, LOGSIZE)

	fs.BeginOp()
	ip := fs.Ialloc(T_FILE)
	fs.Ilock(ip)
	ip.NLink = 1
	fs.Iupdate(ip)
	fs.Iunlock(ip)
	fs.Iput(ip)
	fs.EndOp()

	ip2 := fs.Iget(fs.dev, ip.Inum())
	fs.Ilock(ip2)
	defer fs.IunlockPut(ip2)
	if ip2.Type != T_FILE {
		t.Fatalf("expected reloaded type T_FILE, got %d", ip2.Type)
	}
	if ip2.NLink != 1 {
		t.Fatalf("expected reloaded NLink 1, got %d", ip2.NLink)
	}
}

func TestIlockUnallocatedPanics(t *testing.T) {
	fs, _, _ := mustFormat(t, 200, 50, LOGSIZE)

	// Inode 2 was never allocated (only root, inum 1, exists after
	// Format), so loading it should trip the structural-invariant panic.
	ip := fs.Iget(fs.dev, 2)
	defer fs.Iput(ip)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected Ilock on an unallocated inode to panic")
		}
	}()
	fs.Ilock(ip)
}

func TestIputDestroysUnlinkedInode(t *testing.T) {
	fs, _, _ := mustFormat(t, 200, 50, LOGSIZE)

	fs.BeginOp()
	ip := fs.Ialloc(T_FILE)
	fs.Ilock(ip)
	ip.NLink = 0 // never linked into any directory
	fs.Iupdate(ip)
	inum := ip.Inum()
	fs.IunlockPut(ip) // last ref, NLink==0 -> destroyed
	fs.EndOp()

	// A fresh Iget+Ilock for the same inum must see type 0: it was freed.
	reloaded := fs.Iget(fs.dev, inum)
	defer func() {
		recover() // Ilock panics on type==0, which is exactly what we assert
	}()
	fs.Ilock(reloaded)
	t.Fatalf("expected Ilock on a destroyed inode to panic (type==0), it did not")
}

func TestReadiWriteiRoundTrip(t *testing.T) {
	fs, _, _ := mustFormat(t, 200, 50, LOGSIZE)

	fs.BeginOp()
	ip := fs.Ialloc(T_FILE)
	fs.Ilock(ip)
	ip.NLink = 1
	fs.Iupdate(ip)

	data := make([]byte, BSIZE*2+17) // spans direct blocks plus a partial block
	for i := range data {
		data[i] = byte(i)
	}
	n, err := fs.Writei(ip, data, 0)
	if err != nil || n != len(data) {
		t.Fatalf("Writei: n=%d err=%v", n, err)
	}
	fs.Iunlock(ip)
	fs.EndOp()

	fs.Ilock(ip)
	defer fs.IunlockPut(ip)
	out := make([]byte, len(data))
	n, err = fs.Readi(ip, out, 0)
	if err != nil || n != len(data) {
		t.Fatalf("Readi: n=%d err=%v", n, err)
	}
	for i := range data {
		if out[i] != data[i] {
			t.Fatalf("mismatch at byte %d: want %x got %x", i, data[i], out[i])
		}
	}
}

func TestWriteiRejectsOversizedFile(t *testing.T) {
	fs, _, _ := mustFormat(t, 200, 50, LOGSIZE)

	fs.BeginOp()
	ip := fs.Ialloc(T_FILE)
	fs.Ilock(ip)
	ip.NLink = 1
	fs.Iupdate(ip)

	_, err := fs.Writei(ip, []byte("x"), uint32(MAXFILE)*BSIZE)
	fs.Iunlock(ip)
	fs.EndOp()

	if err != ErrFileTooLarge {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestWriteiRejectsBadOffset(t *testing.T) {
	fs, _, _ := mustFormat(t, 200, 50, LOGSIZE)

	fs.BeginOp()
	ip := fs.Ialloc(T_FILE)
	fs.Ilock(ip)
	ip.NLink = 1
	fs.Iupdate(ip)

	_, err := fs.Writei(ip, []byte("x"), 100) // past end of an empty file
	fs.Iunlock(ip)
	fs.EndOp()

	if err != ErrBadOffset {
		t.Fatalf("expected ErrBadOffset, got %v", err)
	}
}

func TestCompressedFileRoundTripNoCodec(t *testing.T) {
	fs, _, _ := mustFormat(t, 200, 50, LOGSIZE)

	fs.BeginOp()
	ip := fs.Ialloc(T_FILE)
	fs.Ilock(ip)
	ip.NLink = 1
	fs.Iupdate(ip)

	payload := []byte("the quick brown fox jumps over the lazy dog")
	if err := fs.WriteFile(ip, payload, "none"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	fs.Iunlock(ip)
	fs.EndOp()

	fs.Ilock(ip)
	defer fs.IunlockPut(ip)
	got, err := fs.ReadFile(ip)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("expected %q, got %q", payload, got)
	}
}
