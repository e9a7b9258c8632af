package file

import (
	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-journal/util"

	"github.com/tim70036/OS-Nachos/inode"
	"github.com/tim70036/OS-Nachos/super"
)

// OpenFile is an ephemeral handle bound to a header sector. It caches
// the header in memory and mediates byte-level reads and writes. There
// is no reference counting: duplicate opens yield independent handles,
// and dropping a handle writes nothing back.
type OpenFile struct {
	d       disk.Disk
	hdr     *inode.Inode
	sector  uint64
	seekPos uint64
}

// MkOpenFile opens the file whose header lives at sector.
func MkOpenFile(d disk.Disk, sector uint64) *OpenFile {
	hdr := inode.MkInode()
	hdr.FetchFrom(d, sector)
	return &OpenFile{d: d, hdr: hdr, sector: sector}
}

// Sector is the header sector this handle is bound to.
func (f *OpenFile) Sector() uint64 {
	return f.sector
}

// Length is the file size in bytes.
func (f *OpenFile) Length() uint64 {
	return f.hdr.Length()
}

func (f *OpenFile) Seek(pos uint64) {
	f.seekPos = pos
}

// Read reads up to len(p) bytes at the seek position, advancing it.
func (f *OpenFile) Read(p []byte) uint64 {
	n := f.ReadAt(p, f.seekPos)
	f.seekPos += n
	return n
}

// Write writes up to len(p) bytes at the seek position, advancing it.
func (f *OpenFile) Write(p []byte) uint64 {
	n := f.WriteAt(p, f.seekPos)
	f.seekPos += n
	return n
}

// ReadAt reads up to len(p) bytes starting at off, clamped to the file
// length. Returns the number of bytes read.
func (f *OpenFile) ReadAt(p []byte, off uint64) uint64 {
	length := f.hdr.Length()
	if off >= length || util.SumOverflows(off, uint64(len(p))) {
		return 0
	}
	count := util.Min(uint64(len(p)), length-off)

	util.DPrintf(5, "ReadAt: sector %d off %d cnt %d\n", f.sector, off, count)
	var done uint64
	for done < count {
		pos := off + done
		s := f.hdr.ByteToSector(pos)
		blk := f.d.Read(s)
		inSector := pos % super.SectorSize
		n := util.Min(count-done, super.SectorSize-inSector)
		copy(p[done:done+n], blk[inSector:inSector+n])
		done += n
	}
	return done
}

// WriteAt writes up to len(p) bytes starting at off. Files never grow:
// the write is clamped to the file length. Partial first and last
// sectors are read, modified, and written back.
func (f *OpenFile) WriteAt(p []byte, off uint64) uint64 {
	length := f.hdr.Length()
	if off >= length || util.SumOverflows(off, uint64(len(p))) {
		return 0
	}
	count := util.Min(uint64(len(p)), length-off)

	util.DPrintf(5, "WriteAt: sector %d off %d cnt %d\n", f.sector, off, count)
	var done uint64
	for done < count {
		pos := off + done
		s := f.hdr.ByteToSector(pos)
		inSector := pos % super.SectorSize
		n := util.Min(count-done, super.SectorSize-inSector)

		var blk disk.Block
		if inSector == 0 && n == super.SectorSize {
			blk = make([]byte, super.SectorSize)
		} else {
			blk = f.d.Read(s)
		}
		copy(blk[inSector:inSector+n], p[done:done+n])
		f.d.Write(s, blk)
		done += n
	}
	return done
}
