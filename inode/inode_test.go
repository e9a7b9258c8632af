package inode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tchajed/goose/machine/disk"

	"github.com/tim70036/OS-Nachos/bitmap"
	"github.com/tim70036/OS-Nachos/super"
)

func TestAllocate(t *testing.T) {
	fm := bitmap.MkBitmap(32)
	ip := MkInode()
	charged, ok := ip.Allocate(fm, 200)
	require.True(t, ok)
	assert.Equal(t, 2*super.SectorSize, charged) // header + one data sector
	assert.Equal(t, uint64(200), ip.Length())
	assert.Equal(t, uint64(1), ip.NumSectors())
	assert.True(t, fm.Test(ip.ByteToSector(0)))
}

func TestAllocateZeroLength(t *testing.T) {
	fm := bitmap.MkBitmap(8)
	ip := MkInode()
	charged, ok := ip.Allocate(fm, 0)
	require.True(t, ok)
	assert.Equal(t, super.SectorSize, charged)
	assert.Equal(t, uint64(8), fm.NumClear())
}

func TestAllocateAllOrNothing(t *testing.T) {
	fm := bitmap.MkBitmap(2)
	ip := MkInode()
	// Three sectors needed, two available: the map must not change.
	_, ok := ip.Allocate(fm, 3*super.SectorSize)
	assert.False(t, ok)
	assert.Equal(t, uint64(2), fm.NumClear())
}

func TestAllocateTooBig(t *testing.T) {
	fm := bitmap.MkBitmap(8)
	ip := MkInode()
	_, ok := ip.Allocate(fm, MaxFileSize+1)
	assert.False(t, ok)
	assert.Equal(t, uint64(8), fm.NumClear())
}

func TestDeallocate(t *testing.T) {
	fm := bitmap.MkBitmap(16)
	ip := MkInode()
	_, ok := ip.Allocate(fm, 3*super.SectorSize)
	require.True(t, ok)
	assert.Equal(t, uint64(13), fm.NumClear())
	ip.Deallocate(fm)
	assert.Equal(t, uint64(16), fm.NumClear())
}

func TestFetchWriteBack(t *testing.T) {
	d := disk.NewMemDisk(16)
	fm := bitmap.MkBitmap(16)
	fm.Mark(0) // header sector
	ip := MkInode()
	_, ok := ip.Allocate(fm, 5000)
	require.True(t, ok)
	ip.WriteBack(d, 0)

	ip2 := MkInode()
	ip2.FetchFrom(d, 0)
	assert.Equal(t, ip.Length(), ip2.Length())
	assert.Equal(t, ip.NumSectors(), ip2.NumSectors())
	for off := uint64(0); off < ip.Length(); off += super.SectorSize {
		assert.Equal(t, ip.ByteToSector(off), ip2.ByteToSector(off))
	}
}
