package file

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tchajed/goose/machine/disk"

	"github.com/tim70036/OS-Nachos/bitmap"
	"github.com/tim70036/OS-Nachos/inode"
	"github.com/tim70036/OS-Nachos/super"
)

func mkData(sz uint64) []byte {
	data := make([]byte, sz)
	for i := range data {
		data[i] = byte(i % 128)
	}
	return data
}

// mkFile builds a file of sz bytes with its header at sector 0.
func mkFile(t *testing.T, d disk.Disk, sz uint64) *OpenFile {
	fm := bitmap.MkBitmap(32)
	fm.Mark(0)
	hdr := inode.MkInode()
	_, ok := hdr.Allocate(fm, sz)
	require.True(t, ok)
	hdr.WriteBack(d, 0)
	return MkOpenFile(d, 0)
}

func TestWriteReadRoundTrip(t *testing.T) {
	d := disk.NewMemDisk(32)
	sz := 2*super.SectorSize + 500
	f := mkFile(t, d, sz)
	assert.Equal(t, sz, f.Length())

	data := mkData(sz)
	n := f.WriteAt(data, 0)
	assert.Equal(t, sz, n)

	read := make([]byte, sz)
	n = f.ReadAt(read, 0)
	assert.Equal(t, sz, n)
	assert.Equal(t, data, read)
}

func TestPartialSectorWrite(t *testing.T) {
	d := disk.NewMemDisk(32)
	f := mkFile(t, d, 2*super.SectorSize)

	base := mkData(2 * super.SectorSize)
	f.WriteAt(base, 0)

	// Overwrite a range straddling the sector boundary; the rest
	// must be preserved.
	patch := []byte("hello across the boundary")
	off := super.SectorSize - 10
	n := f.WriteAt(patch, off)
	assert.Equal(t, uint64(len(patch)), n)

	read := make([]byte, 2*super.SectorSize)
	f.ReadAt(read, 0)
	assert.Equal(t, base[:off], read[:off])
	assert.Equal(t, patch, read[off:off+uint64(len(patch))])
	assert.Equal(t, base[off+uint64(len(patch)):], read[off+uint64(len(patch)):])
}

func TestClampToLength(t *testing.T) {
	d := disk.NewMemDisk(32)
	f := mkFile(t, d, 100)

	// Files never grow.
	n := f.WriteAt(mkData(200), 50)
	assert.Equal(t, uint64(50), n)
	n = f.WriteAt(mkData(10), 100)
	assert.Equal(t, uint64(0), n)

	read := make([]byte, 200)
	n = f.ReadAt(read, 0)
	assert.Equal(t, uint64(100), n)
	n = f.ReadAt(read, 100)
	assert.Equal(t, uint64(0), n)
}

func TestSeekReadWrite(t *testing.T) {
	d := disk.NewMemDisk(32)
	f := mkFile(t, d, 64)

	n := f.Write([]byte("abcdef"))
	assert.Equal(t, uint64(6), n)
	n = f.Write([]byte("ghij"))
	assert.Equal(t, uint64(4), n)

	f.Seek(2)
	buf := make([]byte, 4)
	n = f.Read(buf)
	assert.Equal(t, uint64(4), n)
	assert.Equal(t, []byte("cdef"), buf)
	n = f.Read(buf)
	assert.Equal(t, uint64(4), n)
	assert.Equal(t, []byte("ghij"), buf)
}

func TestIndependentHandles(t *testing.T) {
	d := disk.NewMemDisk(32)
	f := mkFile(t, d, 32)
	f.WriteAt([]byte("shared"), 0)

	g := MkOpenFile(d, 0)
	buf := make([]byte, 6)
	g.ReadAt(buf, 0)
	assert.Equal(t, []byte("shared"), buf)

	// Seek positions are per-handle.
	f.Seek(3)
	g.Seek(0)
	fb := make([]byte, 3)
	f.Read(fb)
	assert.Equal(t, []byte("red"), fb)
	gb := make([]byte, 3)
	g.Read(gb)
	assert.Equal(t, []byte("sha"), gb)
}
