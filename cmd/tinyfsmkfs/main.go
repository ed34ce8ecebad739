// Command tinyfsmkfs formats a regular file as a tinyfs device: superblock,
// zeroed log/inode/bitmap regions, pre-marked metadata blocks, and a root
// directory containing "." and ".." (spec.md §8 scenario S1).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tinykernel/tinyfs"
)

const usage = `tinyfsmkfs - format a tinyfs device

Usage:
  tinyfsmkfs [flags] <device-file>

Flags:
`

func main() {
	nblocks := flag.Uint("blocks", 1000, "number of data blocks")
	ninodes := flag.Uint("inodes", 200, "number of inode slots")
	nlog := flag.Uint("logsize", tinyfs.LOGSIZE, "log payload capacity in blocks")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	devicePath := flag.Arg(0)

	cfg := tinyfs.ComputeLayout(uint32(*nblocks), uint32(*ninodes), uint32(*nlog))

	device, err := tinyfs.CreateFileDevice(devicePath, cfg.Size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	fs, err := tinyfs.Format(device, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if err := fs.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("formatted %s: %d blocks total, %d data blocks, %d inodes, %d log blocks\n",
		devicePath, cfg.Size, cfg.NBlocks, cfg.NInodes, cfg.NLog)
}
