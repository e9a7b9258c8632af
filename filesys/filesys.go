package filesys

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mit-pdos/go-journal/util"

	"github.com/tim70036/OS-Nachos/bitmap"
	"github.com/tim70036/OS-Nachos/dir"
	"github.com/tim70036/OS-Nachos/file"
	"github.com/tim70036/OS-Nachos/inode"
	"github.com/tim70036/OS-Nachos/super"
	"github.com/tim70036/OS-Nachos/util/stats"
)

// MaxOpenFiles caps the number of handles Open may return over the life
// of the file system. The counter only rises; handles are reclaimed by
// the garbage collector, not returned to the budget.
const MaxOpenFiles = 487

// MaxPathLen bounds the length of a path string.
const MaxPathLen = 1000

// FileSystem manages a bitmap-allocated disk through fixed-size file
// headers and a directory tree. The free-map file and the root
// directory file are held open for the lifetime of the run.
//
// There is no synchronization for concurrent access and no crash
// recovery: operations that modify the directory or the bitmap write
// back only on full success and discard in-memory changes otherwise.
type FileSystem struct {
	super         *super.FsSuper
	freeMapFile   *file.OpenFile
	directoryFile *file.OpenFile
	numOpenFiles  int
	out           io.Writer
	stats         [numFsOps]stats.Op
}

// MkFileSystem boots the file system. When format is set the disk is
// assumed empty: sectors 0 and 1 are claimed for the free-map and
// root-directory headers, both files get their data blocks, and the
// initial bitmap and empty root directory are persisted. Otherwise the
// two well-known sectors are simply opened.
func MkFileSystem(sp *super.FsSuper, format bool) *FileSystem {
	fs := &FileSystem{super: sp, out: os.Stdout}
	if format {
		util.DPrintf(1, "Formatting the file system\n")
		freeMap := bitmap.MkBitmap(sp.NumSectors)
		directory := dir.MkDirectory(super.NumDirEntries)
		mapHdr := inode.MkInode()
		dirHdr := inode.MkInode()

		// Claim the header sectors first so the data-block
		// allocation below cannot hand them out.
		freeMap.Mark(super.FreeMapSector)
		freeMap.Mark(super.DirectorySector)

		if _, ok := mapHdr.Allocate(freeMap, sp.FreeMapFileSize()); !ok {
			panic("MkFileSystem: no space for free-map file")
		}
		if _, ok := dirHdr.Allocate(freeMap, super.DirectoryFileSize); !ok {
			panic("MkFileSystem: no space for root directory file")
		}

		// The headers must be on disk before the files can be
		// opened, since opening fetches the header.
		mapHdr.WriteBack(sp.Disk, super.FreeMapSector)
		dirHdr.WriteBack(sp.Disk, super.DirectorySector)

		fs.freeMapFile = file.MkOpenFile(sp.Disk, super.FreeMapSector)
		fs.directoryFile = file.MkOpenFile(sp.Disk, super.DirectorySector)

		freeMap.WriteBack(fs.freeMapFile)
		directory.WriteBack(fs.directoryFile)
	} else {
		fs.freeMapFile = file.MkOpenFile(sp.Disk, super.FreeMapSector)
		fs.directoryFile = file.MkOpenFile(sp.Disk, super.DirectorySector)
	}
	return fs
}

// SetOutput redirects listing and diagnostic output.
func (fs *FileSystem) SetOutput(w io.Writer) {
	fs.out = w
}

// splitPath breaks an absolute path into owned components. Empty
// paths, relative paths, empty components (trailing slash), overlong
// paths, and overlong names all fail.
func splitPath(path string) ([]string, bool) {
	if len(path) == 0 || len(path) > MaxPathLen || path[0] != '/' {
		return nil, false
	}
	comps := strings.Split(path[1:], "/")
	for _, c := range comps {
		if c == "" || uint64(len(c)) > dir.MaxNameLen {
			return nil, false
		}
	}
	return comps, true
}

// findSubDirectory walks the non-terminal components of path and
// returns the handle of the containing directory plus the terminal
// name. The root handle is borrowed from the file system; intermediate
// handles belong to the traversal. Each non-terminal component must
// name a directory.
func (fs *FileSystem) findSubDirectory(path string) (*file.OpenFile, string) {
	comps, ok := splitPath(path)
	if !ok {
		return nil, ""
	}

	curFile := fs.directoryFile
	curDir := dir.MkDirectory(super.NumDirEntries)
	curDir.FetchFrom(curFile)

	for _, c := range comps[:len(comps)-1] {
		sector, found := curDir.Find(c)
		if !found || !curDir.IsDir(c) {
			util.DPrintf(2, "findSubDirectory: %s not found under %s\n", c, path)
			return nil, ""
		}
		curFile = file.MkOpenFile(fs.super.Disk, sector)
		curDir.FetchFrom(curFile)
	}
	return curFile, comps[len(comps)-1]
}

// Create makes a file (or directory) of initialSize bytes at path. It
// fails when the parent is missing, the name exists, there is no free
// sector for the header, the parent table is full, or the data blocks
// cannot be reserved. Any failure leaves the disk untouched; success
// writes the new header, the parent directory, and the bitmap, in that
// order. For directories initialSize is overridden by the canonical
// directory-file size and the new table is written out empty.
func (fs *FileSystem) Create(path string, initialSize uint64, isDir bool) bool {
	defer fs.recordOp(statCreate, time.Now())

	if isDir {
		initialSize = super.DirectoryFileSize
	}
	util.DPrintf(1, "Create %s size %d dir %v\n", path, initialSize, isDir)

	curDirFile, name := fs.findSubDirectory(path)
	if curDirFile == nil {
		return false
	}
	directory := dir.MkDirectory(super.NumDirEntries)
	directory.FetchFrom(curDirFile)

	if _, found := directory.Find(name); found {
		return false
	}

	freeMap := bitmap.MkBitmapFromFile(fs.super.NumSectors, fs.freeMapFile)
	sector, ok := freeMap.FindAndSet()
	if !ok {
		return false
	}
	if !directory.Add(name, sector, isDir) {
		return false
	}
	hdr := inode.MkInode()
	charged, ok := hdr.Allocate(freeMap, initialSize)
	if !ok {
		return false
	}
	util.DPrintf(1, "Create %s: charged %d bytes\n", path, charged)

	// Everything worked; flush the changes.
	hdr.WriteBack(fs.super.Disk, sector)
	if isDir {
		newDirFile := file.MkOpenFile(fs.super.Disk, sector)
		dir.MkDirectory(super.NumDirEntries).WriteBack(newDirFile)
	}
	directory.WriteBack(curDirFile)
	freeMap.WriteBack(fs.freeMapFile)
	return true
}

// Open returns a handle for the file at path, or nil when the path is
// absent or the live-handle budget is exhausted.
func (fs *FileSystem) Open(path string) *file.OpenFile {
	defer fs.recordOp(statOpen, time.Now())

	curDirFile, name := fs.findSubDirectory(path)
	if curDirFile == nil {
		return nil
	}
	directory := dir.MkDirectory(super.NumDirEntries)
	directory.FetchFrom(curDirFile)

	if fs.numOpenFiles >= MaxOpenFiles {
		util.DPrintf(1, "Open %s: too many open files\n", path)
		return nil
	}
	sector, found := directory.Find(name)
	if !found {
		return nil
	}
	fs.numOpenFiles++
	util.DPrintf(1, "Open %s -> sector %d\n", path, sector)
	return file.MkOpenFile(fs.super.Disk, sector)
}

// Remove deletes the file or directory at path: the directory entry is
// dropped, the data blocks and the header sector return to the free
// map, and the bitmap and parent directory are written back. Directory
// targets are removed child-first when recursive; a non-empty
// directory without recursive is refused rather than leaking its
// children's sectors.
func (fs *FileSystem) Remove(recursive bool, path string) bool {
	defer fs.recordOp(statRemove, time.Now())
	util.DPrintf(1, "Remove %s recursive %v\n", path, recursive)

	curDirFile, name := fs.findSubDirectory(path)
	if curDirFile == nil {
		return false
	}
	directory := dir.MkDirectory(super.NumDirEntries)
	directory.FetchFrom(curDirFile)

	sector, found := directory.Find(name)
	if !found {
		return false
	}

	if directory.IsDir(name) {
		target := dir.MkDirectory(super.NumDirEntries)
		target.FetchFrom(file.MkOpenFile(fs.super.Disk, sector))
		if recursive {
			for _, child := range target.InUseNames() {
				fs.Remove(true, path+"/"+child)
			}
		} else if !target.IsEmpty() {
			util.DPrintf(1, "Remove %s: directory not empty\n", path)
			return false
		}
	}

	// The recursive removals above rewrote the bitmap, so it must be
	// reloaded only now.
	hdr := inode.MkInode()
	hdr.FetchFrom(fs.super.Disk, sector)
	freeMap := bitmap.MkBitmapFromFile(fs.super.NumSectors, fs.freeMapFile)

	hdr.Deallocate(freeMap)
	freeMap.Clear(sector)
	directory.Remove(name)

	freeMap.WriteBack(fs.freeMapFile)
	directory.WriteBack(curDirFile)
	return true
}

// List prints the entries of the directory at path; "/" lists the root
// directly. Subdirectories are descended when recursive.
func (fs *FileSystem) List(recursive bool, path string) {
	defer fs.recordOp(statList, time.Now())

	if path == "/" {
		directory := dir.MkDirectory(super.NumDirEntries)
		directory.FetchFrom(fs.directoryFile)
		directory.List(fs.out, fs.super.Disk, recursive, 0)
		return
	}

	curDirFile, name := fs.findSubDirectory(path)
	if curDirFile == nil {
		return
	}
	directory := dir.MkDirectory(super.NumDirEntries)
	directory.FetchFrom(curDirFile)

	sector, found := directory.Find(name)
	if !found || !directory.IsDir(name) {
		util.DPrintf(1, "List %s: not a directory\n", path)
		return
	}
	target := dir.MkDirectory(super.NumDirEntries)
	target.FetchFrom(file.MkOpenFile(fs.super.Disk, sector))
	target.List(fs.out, fs.super.Disk, recursive, 0)
}

// Print dumps the two well-known headers, the bitmap, and the root
// directory.
func (fs *FileSystem) Print() {
	defer fs.recordOp(statPrint, time.Now())

	bitHdr := inode.MkInode()
	bitHdr.FetchFrom(fs.super.Disk, super.FreeMapSector)
	fmt.Fprintf(fs.out, "Bit map file header:\n")
	bitHdr.Print(fs.out, fs.super.Disk)

	dirHdr := inode.MkInode()
	dirHdr.FetchFrom(fs.super.Disk, super.DirectorySector)
	fmt.Fprintf(fs.out, "Directory file header:\n")
	dirHdr.Print(fs.out, fs.super.Disk)

	freeMap := bitmap.MkBitmapFromFile(fs.super.NumSectors, fs.freeMapFile)
	freeMap.Print(fs.out)

	directory := dir.MkDirectory(super.NumDirEntries)
	directory.FetchFrom(fs.directoryFile)
	directory.Print(fs.out)
}

// FreeMap snapshots the current on-disk free map.
func (fs *FileSystem) FreeMap() *bitmap.Bitmap {
	return bitmap.MkBitmapFromFile(fs.super.NumSectors, fs.freeMapFile)
}
