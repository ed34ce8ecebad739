package tinyfs

import (
	"encoding/binary"
	"sync"
)

// txLog is the in-memory state of the write-ahead redo log (spec.md
// §3, §4.2): the on-disk region start/size, the device, how many
// transactions are currently open, whether a commit is in flight, and
// the pending log header.
//
// State machine (spec.md §4.2): IDLE (outstanding=0, committing=false),
// ACTIVE (outstanding>0), COMMITTING (outstanding=0, committing=true).
// beginOp blocks while committing or while admission would overflow the
// log; endOp drives ACTIVE->COMMITTING->IDLE when the last concurrent
// operation closes.
type txLog struct {
	mu          sync.Mutex
	cond        *sync.Cond
	bc          *bufCache
	dev         uint32
	start       uint32 // first log block (the header)
	size        uint32 // blocks in the log region, including the header
	outstanding int
	committing  bool
	n           int32
	block       []int32 // home block number of the i-th logged payload
}

func newTxLog(bc *bufCache, dev, start, size uint32) *txLog {
	l := &txLog{
		bc:    bc,
		dev:   dev,
		start: start,
		size:  size,
		block: make([]int32, LOGSIZE),
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// logHeaderBytes is sizeof(n) + LOGSIZE*sizeof(int32).
const logHeaderBytes = 4 + LOGSIZE*4

func (l *txLog) readHead() {
	b := l.bc.bread(l.dev, l.start)
	defer l.bc.brelse(b)
	l.n = int32(binary.LittleEndian.Uint32(b.data[0:4]))
	for i := 0; i < LOGSIZE; i++ {
		off := 4 + i*4
		l.block[i] = int32(binary.LittleEndian.Uint32(b.data[off : off+4]))
	}
}

// writeHead is the commit point (spec.md §4.2): once this write lands,
// replay of logstart+1..logstart+n is authoritative, even if the
// process crashes before those blocks are installed at their home
// locations.
func (l *txLog) writeHead() {
	b := l.bc.bread(l.dev, l.start)
	binary.LittleEndian.PutUint32(b.data[0:4], uint32(l.n))
	for i := 0; i < LOGSIZE; i++ {
		off := 4 + i*4
		binary.LittleEndian.PutUint32(b.data[off:off+4], uint32(l.block[i]))
	}
	l.bc.bwrite(b)
	l.bc.brelse(b)
}

// recover runs at mount time: replay any committed-but-not-installed
// transaction, then clear the log. Idempotent, since install is a
// straight block copy and replaying an already-installed log changes
// nothing.
func (l *txLog) recover() {
	l.readHead()
	l.installTrans(true)
	l.n = 0
	l.writeHead()
}

// beginOp brackets the start of a file-system operation. It blocks while
// a commit is in flight, or while admitting this operation could
// overflow the log given every outstanding operation's worst-case
// MAXOPBLOCKS reservation.
func (l *txLog) beginOp() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for {
		if l.committing {
			l.cond.Wait()
			continue
		}
		if int(l.n)+(l.outstanding+1)*MAXOPBLOCKS > LOGSIZE {
			l.cond.Wait()
			continue
		}
		l.outstanding++
		return
	}
}

// endOp closes one file-system operation. If it was the last
// outstanding operation, it commits the transaction (without holding
// log.lock, per spec.md §5) and then wakes any waiters.
func (l *txLog) endOp() {
	l.mu.Lock()
	l.outstanding--
	doCommit := false
	if l.outstanding < 0 {
		l.mu.Unlock()
		fatalf("endOp", "outstanding went negative")
	}
	if l.outstanding == 0 {
		doCommit = true
		l.committing = true
	} else {
		l.cond.Broadcast()
	}
	l.mu.Unlock()

	if doCommit {
		l.commit()
		l.mu.Lock()
		l.committing = false
		l.cond.Broadcast()
		l.mu.Unlock()
	}
}

// write records that buffer b was modified by the current transaction.
// Must be called with an operation open and b's sleep-lock held by the
// caller. Repeated writes to the same block within one transaction
// absorb into a single log slot (spec.md §4.2, §8 property 4).
func (l *txLog) write(b *buffer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.outstanding < 1 {
		fatalf("log_write", "called outside of a transaction")
	}
	if l.n >= LOGSIZE || int(l.n) >= int(l.size)-1 {
		fatalf("log_write", "transaction too big")
	}

	for i := int32(0); i < l.n; i++ {
		if l.block[i] == int32(b.blockno) {
			return // absorption: this block already has a log slot
		}
	}
	l.block[l.n] = int32(b.blockno)
	l.n++
	l.bc.bpin(b)
}

// commit is the heart of group commit (spec.md §4.2): copy each logged
// block's current cached payload into the log's payload region, write
// the header (the actual commit), install every payload to its home
// location, then clear the header so the log is empty again.
func (l *txLog) commit() {
	l.mu.Lock()
	n := l.n
	home := append([]int32(nil), l.block[:n]...)
	l.mu.Unlock()

	if n == 0 {
		return
	}

	for i, blockno := range home {
		from := l.bc.bread(l.dev, uint32(blockno))
		to := l.bc.bread(l.dev, l.start+uint32(i)+1)
		to.data = from.data
		l.bc.bwrite(to)
		l.bc.brelse(to)
		l.bc.brelse(from)
	}

	l.writeHead() // commit point

	l.installTrans(false)

	l.mu.Lock()
	l.n = 0
	l.mu.Unlock()
	l.writeHead() // clear the log
}

// installTrans copies every logged payload block to its home location.
// When recovering is false (normal commit), each installed buffer is
// unpinned, matching the pin taken by log_write; during boot recovery
// the buffers were never pinned, so bunpin is skipped.
func (l *txLog) installTrans(recovering bool) {
	for i := int32(0); i < l.n; i++ {
		from := l.bc.bread(l.dev, l.start+uint32(i)+1)
		to := l.bc.bread(l.dev, uint32(l.block[i]))
		to.data = from.data
		l.bc.bwrite(to)
		if !recovering {
			l.bc.bunpin(to)
		}
		l.bc.brelse(from)
		l.bc.brelse(to)
	}
}
