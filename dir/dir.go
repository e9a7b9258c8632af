package dir

import (
	"fmt"
	"io"
	"strings"

	"github.com/rodaine/table"
	"github.com/tchajed/goose/machine/disk"
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-journal/util"

	"github.com/tim70036/OS-Nachos/file"
	"github.com/tim70036/OS-Nachos/inode"
	"github.com/tim70036/OS-Nachos/super"
)

// MaxNameLen bounds entry names: each 128-byte record holds the header
// sector, the flags, and the name length before the name itself.
const MaxNameLen = super.DirEntrySize - 24

const (
	flagInUse uint64 = 1 << 0
	flagIsDir uint64 = 1 << 1
)

type dirEnt struct {
	inUse  bool
	isDir  bool
	sector uint64
	name   string // <= MaxNameLen
}

// Directory is a fixed-capacity table of named entries, itself stored
// as a file. Name uniqueness among in-use entries is an invariant.
type Directory struct {
	table []dirEnt
}

// MkDirectory returns an empty table of size entries. The size is fixed
// at format time; growth is not supported.
func MkDirectory(size uint64) *Directory {
	return &Directory{table: make([]dirEnt, size)}
}

func encodeDirEnt(de *dirEnt) []byte {
	var flags uint64
	if de.inUse {
		flags |= flagInUse
	}
	if de.isDir {
		flags |= flagIsDir
	}
	enc := marshal.NewEnc(super.DirEntrySize)
	enc.PutInt(de.sector)
	enc.PutInt(flags)
	enc.PutInt(uint64(len(de.name)))
	enc.PutBytes([]byte(de.name))
	return enc.Finish()
}

func decodeDirEnt(d []byte) dirEnt {
	dec := marshal.NewDec(d)
	sector := dec.GetInt()
	flags := dec.GetInt()
	l := dec.GetInt()
	var name string
	if flags&flagInUse != 0 {
		name = string(dec.GetBytes(l))
	}
	return dirEnt{
		inUse:  flags&flagInUse != 0,
		isDir:  flags&flagIsDir != 0,
		sector: sector,
		name:   name,
	}
}

// FetchFrom reads the table in from its backing file.
func (d *Directory) FetchFrom(f *file.OpenFile) {
	buf := make([]byte, super.DirEntrySize)
	for i := range d.table {
		n := f.ReadAt(buf, uint64(i)*super.DirEntrySize)
		if n != super.DirEntrySize {
			panic("dir: FetchFrom short read")
		}
		d.table[i] = decodeDirEnt(buf)
	}
}

// WriteBack flushes the table to its backing file.
func (d *Directory) WriteBack(f *file.OpenFile) {
	for i := range d.table {
		n := f.WriteAt(encodeDirEnt(&d.table[i]), uint64(i)*super.DirEntrySize)
		if n != super.DirEntrySize {
			panic("dir: WriteBack short write")
		}
	}
}

func (d *Directory) findIndex(name string) (int, bool) {
	for i := range d.table {
		if d.table[i].inUse && d.table[i].name == name {
			return i, true
		}
	}
	return 0, false
}

// Find returns the header sector for name; ok is false when absent.
func (d *Directory) Find(name string) (uint64, bool) {
	i, ok := d.findIndex(name)
	if !ok {
		return 0, false
	}
	return d.table[i].sector, true
}

// Add records name at the given header sector. It fails when the name
// is already present, is too long, or the table is full.
func (d *Directory) Add(name string, sector uint64, isDir bool) bool {
	if name == "" || uint64(len(name)) > MaxNameLen {
		return false
	}
	if _, ok := d.findIndex(name); ok {
		return false
	}
	for i := range d.table {
		if !d.table[i].inUse {
			d.table[i] = dirEnt{inUse: true, isDir: isDir, sector: sector, name: name}
			util.DPrintf(5, "dir Add %s -> sector %d\n", name, sector)
			return true
		}
	}
	return false
}

// Remove drops name from the table; false when absent.
func (d *Directory) Remove(name string) bool {
	i, ok := d.findIndex(name)
	if !ok {
		return false
	}
	d.table[i] = dirEnt{}
	util.DPrintf(5, "dir Remove %s\n", name)
	return true
}

// IsDir reports whether name is present and names a directory.
func (d *Directory) IsDir(name string) bool {
	i, ok := d.findIndex(name)
	return ok && d.table[i].isDir
}

// IsEmpty reports whether the table has no in-use entries.
func (d *Directory) IsEmpty() bool {
	for i := range d.table {
		if d.table[i].inUse {
			return false
		}
	}
	return true
}

// InUseNames snapshots the names of all in-use entries.
func (d *Directory) InUseNames() []string {
	var names []string
	for i := range d.table {
		if d.table[i].inUse {
			names = append(names, d.table[i].name)
		}
	}
	return names
}

// List prints the entries, one per line, descending into
// subdirectories when recursive. Directories are marked with a
// trailing slash; files show their byte length.
func (d *Directory) List(w io.Writer, dsk disk.Disk, recursive bool, depth int) {
	indent := strings.Repeat("    ", depth)
	for i := range d.table {
		de := &d.table[i]
		if !de.inUse {
			continue
		}
		if de.isDir {
			fmt.Fprintf(w, "%s%s/\n", indent, de.name)
			if recursive {
				sub := MkDirectory(super.NumDirEntries)
				subFile := file.MkOpenFile(dsk, de.sector)
				sub.FetchFrom(subFile)
				sub.List(w, dsk, recursive, depth+1)
			}
		} else {
			hdr := inode.MkInode()
			hdr.FetchFrom(dsk, de.sector)
			fmt.Fprintf(w, "%s%s %d\n", indent, de.name, hdr.Length())
		}
	}
}

// Print dumps the table, for debugging.
func (d *Directory) Print(w io.Writer) {
	fmt.Fprintf(w, "Directory contents:\n")
	tbl := table.New("name", "sector", "dir")
	for i := range d.table {
		de := &d.table[i]
		if !de.inUse {
			continue
		}
		tbl.AddRow(de.name, de.sector, de.isDir)
	}
	tbl.WithWriter(w)
	tbl.Print()
}
