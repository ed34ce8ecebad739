package tinyfs

// memDevice backs a BlockDevice with a plain []byte, mirroring the
// teacher's mockReader (mock_test.go): a slice-backed stand-in for a real
// device, fast enough for many small tests and able to simulate a crash by
// snapshotting its contents and later restoring that snapshot.
type memDevice struct {
	blocks [][]byte
	closed bool
}

func newMemDevice(nblocks uint32) *memDevice {
	d := &memDevice{blocks: make([][]byte, nblocks)}
	for i := range d.blocks {
		d.blocks[i] = make([]byte, BSIZE)
	}
	return d
}

func (d *memDevice) ReadBlock(blockno uint32, buf []byte) error {
	if d.closed {
		fatalf("memDevice.ReadBlock", "device closed")
	}
	if int(blockno) >= len(d.blocks) {
		fatalf("memDevice.ReadBlock", "blockno %d out of range", blockno)
	}
	if len(buf) != BSIZE {
		fatalf("memDevice.ReadBlock", "buffer length %d != BSIZE", len(buf))
	}
	copy(buf, d.blocks[blockno])
	return nil
}

func (d *memDevice) WriteBlock(blockno uint32, buf []byte) error {
	if d.closed {
		fatalf("memDevice.WriteBlock", "device closed")
	}
	if int(blockno) >= len(d.blocks) {
		fatalf("memDevice.WriteBlock", "blockno %d out of range", blockno)
	}
	if len(buf) != BSIZE {
		fatalf("memDevice.WriteBlock", "buffer length %d != BSIZE", len(buf))
	}
	copy(d.blocks[blockno], buf)
	return nil
}

func (d *memDevice) Sync() error { return nil }

func (d *memDevice) Close() error {
	d.closed = true
	return nil
}

// snapshot returns a deep copy of the device's current contents, letting a
// test simulate a crash: take a snapshot, perform a partial write (e.g.
// write the log payload but not its header), then restore and remount to
// check recovery behaves as if the header write never committed.
func (d *memDevice) snapshot() [][]byte {
	out := make([][]byte, len(d.blocks))
	for i, b := range d.blocks {
		cp := make([]byte, len(b))
		copy(cp, b)
		out[i] = cp
	}
	return out
}

func (d *memDevice) restore(snap [][]byte) {
	d.blocks = snap
}

// formatMemDevice lays out a small, valid on-disk filesystem in memory and
// returns both the device and the FormatConfig used, so tests can remount
// or re-run Format against the same layout (e.g. after restoring a
// snapshot) without repeating the arithmetic.
func formatMemDevice(nblocks, ninodes, nlogPayload uint32) (*memDevice, FormatConfig) {
	cfg := ComputeLayout(nblocks, ninodes, nlogPayload)
	dev := newMemDevice(cfg.Size)
	return dev, cfg
}
