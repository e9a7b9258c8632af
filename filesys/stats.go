package filesys

import (
	"io"
	"time"

	"github.com/tim70036/OS-Nachos/util/stats"
)

const (
	statCreate = iota
	statOpen
	statRemove
	statList
	statPrint
	numFsOps
)

var fsopNames = []string{
	"CREATE",
	"OPEN",
	"REMOVE",
	"LIST",
	"PRINT",
}

func (fs *FileSystem) recordOp(op int, start time.Time) {
	fs.stats[op].Record(start)
}

func (fs *FileSystem) WriteOpStats(w io.Writer) {
	stats.WriteTable(fsopNames, fs.stats[:], w)
}

func (fs *FileSystem) ResetOpStats() {
	for i := range fs.stats {
		fs.stats[i].Reset()
	}
}
