package super

import (
	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-journal/util"
)

// Sectors containing the file headers for the free-sector bitmap and for
// the root directory. These live in well-known sectors so that the file
// system can locate them on boot.
const (
	FreeMapSector   uint64 = 0
	DirectorySector uint64 = 1
)

// SectorSize is fixed by the emulated disk.
const SectorSize uint64 = disk.BlockSize

// The directory table size is fixed at format time; growth is not
// supported.
const (
	NumDirEntries     uint64 = 64
	DirEntrySize      uint64 = 128
	DirectoryFileSize uint64 = NumDirEntries * DirEntrySize
)

type FsSuper struct {
	Disk       disk.Disk
	NumSectors uint64
}

// MkFsSuper opens the emulated disk: a file-backed image when name is
// non-nil, an in-memory disk otherwise. sz is the sector count.
func MkFsSuper(sz uint64, name *string) *FsSuper {
	var d disk.Disk
	if name != nil {
		util.DPrintf(0, "MkFsSuper: open file disk %s\n", *name)
		file, err := disk.NewFileDisk(*name, sz)
		if err != nil {
			panic("MkFsSuper: couldn't create disk image")
		}
		d = file
	} else {
		util.DPrintf(0, "MkFsSuper: create mem disk\n")
		d = disk.NewMemDisk(sz)
	}

	return &FsSuper{
		Disk:       d,
		NumSectors: sz,
	}
}

// FreeMapFileSize is the byte length of the free-map file: one bit per
// sector, rounded up to whole bytes.
func (sp *FsSuper) FreeMapFileSize() uint64 {
	return (sp.NumSectors + 7) / 8
}
