package inode

import (
	"fmt"
	"io"

	"github.com/tchajed/goose/machine/disk"
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-journal/util"

	"github.com/tim70036/OS-Nachos/bitmap"
	"github.com/tim70036/OS-Nachos/super"
)

const hdrMeta uint64 = 16 // numBytes + numSectors

// MaxNumDirect is how many data-sector indices fit in a one-sector
// header alongside the metadata.
const MaxNumDirect uint64 = (super.SectorSize - hdrMeta) / 8

// MaxFileSize is the largest file a single header can describe.
const MaxFileSize uint64 = MaxNumDirect * super.SectorSize

// Inode is a file header: one sector of per-file metadata holding the
// byte length and the ordered list of data sectors backing it.
type Inode struct {
	numBytes   uint64
	numSectors uint64
	sectors    []uint64
}

func MkInode() *Inode {
	return &Inode{}
}

func (ip *Inode) encode() []byte {
	enc := marshal.NewEnc(super.SectorSize)
	enc.PutInt(ip.numBytes)
	enc.PutInt(ip.numSectors)
	enc.PutInts(ip.sectors)
	return enc.Finish()
}

func decode(blk []byte) *Inode {
	dec := marshal.NewDec(blk)
	ip := &Inode{}
	ip.numBytes = dec.GetInt()
	ip.numSectors = dec.GetInt()
	ip.sectors = dec.GetInts(ip.numSectors)
	return ip
}

// Allocate reserves data sectors for a file of sizeBytes. The claim is
// all-or-nothing: on failure the free map is untouched and ok is false.
// On success the total bytes charged is returned: one header sector
// plus every data sector.
func (ip *Inode) Allocate(fm *bitmap.Bitmap, sizeBytes uint64) (uint64, bool) {
	nSectors := (sizeBytes + super.SectorSize - 1) / super.SectorSize
	if nSectors > MaxNumDirect {
		return 0, false
	}
	if fm.NumClear() < nSectors {
		return 0, false
	}

	ip.numBytes = sizeBytes
	ip.numSectors = nSectors
	ip.sectors = make([]uint64, 0, nSectors)
	for i := uint64(0); i < nSectors; i++ {
		// NumClear was checked above, so FindAndSet cannot fail.
		s, ok := fm.FindAndSet()
		if !ok {
			panic("inode: Allocate ran out of sectors")
		}
		ip.sectors = append(ip.sectors, s)
	}
	charged := (1 + nSectors) * super.SectorSize
	util.DPrintf(5, "Allocate: %d bytes -> %d sectors, charged %d\n",
		sizeBytes, nSectors, charged)
	return charged, true
}

// Deallocate returns every owned data sector to the free map.
func (ip *Inode) Deallocate(fm *bitmap.Bitmap) {
	for _, s := range ip.sectors {
		fm.Clear(s)
	}
	util.DPrintf(5, "Deallocate: freed %v\n", ip.sectors)
	ip.numBytes = 0
	ip.numSectors = 0
	ip.sectors = nil
}

// FetchFrom reads the header in from its sector.
func (ip *Inode) FetchFrom(d disk.Disk, sector uint64) {
	*ip = *decode(d.Read(sector))
}

// WriteBack flushes the header to its sector.
func (ip *Inode) WriteBack(d disk.Disk, sector uint64) {
	d.Write(sector, ip.encode())
}

// ByteToSector maps a byte offset within the file to the disk sector
// holding it.
func (ip *Inode) ByteToSector(offset uint64) uint64 {
	return ip.sectors[offset/super.SectorSize]
}

// Length is the file size in bytes.
func (ip *Inode) Length() uint64 {
	return ip.numBytes
}

func (ip *Inode) NumSectors() uint64 {
	return ip.numSectors
}

func (ip *Inode) String() string {
	return fmt.Sprintf("sz %d sectors %v", ip.numBytes, ip.sectors)
}

// Print dumps the header and the contents of each data sector.
func (ip *Inode) Print(w io.Writer, d disk.Disk) {
	fmt.Fprintf(w, "FileHeader contents. File size: %d. File blocks:\n", ip.numBytes)
	for _, s := range ip.sectors {
		fmt.Fprintf(w, "%d ", s)
	}
	fmt.Fprintf(w, "\nFile contents:\n")
	remaining := ip.numBytes
	for _, s := range ip.sectors {
		blk := d.Read(s)
		n := util.Min(remaining, super.SectorSize)
		for i := uint64(0); i < n; i++ {
			c := blk[i]
			if c >= 0x20 && c < 0x7f {
				fmt.Fprintf(w, "%c", c)
			} else {
				fmt.Fprintf(w, "\\%x", c)
			}
		}
		fmt.Fprintf(w, "\n")
		remaining -= n
	}
}
