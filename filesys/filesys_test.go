package filesys

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tim70036/OS-Nachos/super"
)

const diskSectors uint64 = 1024

func mkFs(t *testing.T) *FileSystem {
	sp := super.MkFsSuper(diskSectors, nil)
	return MkFileSystem(sp, true)
}

func mkData(sz uint64) []byte {
	data := make([]byte, sz)
	for i := range data {
		data[i] = byte(i % 128)
	}
	return data
}

func sameBits(t *testing.T, fs *FileSystem, want map[uint64]bool) {
	fm := fs.FreeMap()
	for s, set := range want {
		assert.Equal(t, set, fm.Test(s), "sector %d", s)
	}
}

func TestFormat(t *testing.T) {
	fs := mkFs(t)
	fm := fs.FreeMap()
	// Sectors 0 and 1 hold the well-known headers; the free-map file
	// needs one data sector and the root directory two.
	assert.Equal(t, diskSectors-5, fm.NumClear())
	assert.True(t, fm.Test(super.FreeMapSector))
	assert.True(t, fm.Test(super.DirectorySector))
}

func TestCreateAndList(t *testing.T) {
	fs := mkFs(t)
	require.True(t, fs.Create("/a", 0, true))
	require.True(t, fs.Create("/a/b", 200, false))

	var buf bytes.Buffer
	fs.SetOutput(&buf)
	fs.List(false, "/")
	assert.Equal(t, "a/\n", buf.String())

	buf.Reset()
	fs.List(false, "/a")
	assert.Equal(t, "b 200\n", buf.String())

	buf.Reset()
	fs.List(true, "/")
	assert.Equal(t, "a/\n    b 200\n", buf.String())
}

func TestCreateFailures(t *testing.T) {
	fs := mkFs(t)
	require.True(t, fs.Create("/a", 0, true))
	require.True(t, fs.Create("/a/b", 10, false))

	assert.False(t, fs.Create("/a/b", 10, false), "duplicate name")
	assert.False(t, fs.Create("/nope/x", 10, false), "missing parent")
	assert.False(t, fs.Create("/a/b/c", 10, false), "parent is a file")
	assert.False(t, fs.Create("", 10, false), "empty path")
	assert.False(t, fs.Create("/a/", 10, false), "trailing slash")
	assert.False(t, fs.Create("relative", 10, false), "relative path")
}

func TestOpenReadWrite(t *testing.T) {
	fs := mkFs(t)
	sz := 2*super.SectorSize + 77
	require.True(t, fs.Create("/f", sz, false))

	f := fs.Open("/f")
	require.NotNil(t, f)
	data := mkData(sz)
	assert.Equal(t, sz, f.WriteAt(data, 0))

	g := fs.Open("/f")
	require.NotNil(t, g)
	read := make([]byte, sz)
	assert.Equal(t, sz, g.ReadAt(read, 0))
	assert.Equal(t, data, read)

	assert.Nil(t, fs.Open("/g"))
}

func TestRoundTripReopen(t *testing.T) {
	sp := super.MkFsSuper(diskSectors, nil)
	fs := MkFileSystem(sp, true)

	require.True(t, fs.Create("/d", 0, true))
	sizes := []uint64{1, 100, super.SectorSize, super.SectorSize + 1, 3*super.SectorSize + 7}
	for i, sz := range sizes {
		path := fmt.Sprintf("/d/f%d", i)
		require.True(t, fs.Create(path, sz, false))
		f := fs.Open(path)
		require.NotNil(t, f)
		require.Equal(t, sz, f.WriteAt(mkData(sz), 0))
	}

	// Boot again from the same disk without formatting.
	fs2 := MkFileSystem(sp, false)
	for i, sz := range sizes {
		f := fs2.Open(fmt.Sprintf("/d/f%d", i))
		require.NotNil(t, f)
		assert.Equal(t, sz, f.Length())
		read := make([]byte, sz)
		assert.Equal(t, sz, f.ReadAt(read, 0))
		assert.Equal(t, mkData(sz), read)
	}
}

func TestRemoveFile(t *testing.T) {
	fs := mkFs(t)
	before := fs.FreeMap().NumClear()

	require.True(t, fs.Create("/f", 300, false))
	f := fs.Open("/f")
	require.NotNil(t, f)
	hdrSector := f.Sector()

	require.True(t, fs.Remove(false, "/f"))
	assert.Nil(t, fs.Open("/f"))
	assert.Equal(t, before, fs.FreeMap().NumClear())
	sameBits(t, fs, map[uint64]bool{hdrSector: false})

	assert.False(t, fs.Remove(false, "/f"))
}

func TestRecursiveRemove(t *testing.T) {
	fs := mkFs(t)
	baseline := fs.FreeMap().NumClear()

	require.True(t, fs.Create("/a", 0, true))
	require.True(t, fs.Create("/a/b", 200, false))
	require.True(t, fs.Create("/a/c", 0, true))
	require.True(t, fs.Create("/a/c/d", 5000, false))

	require.True(t, fs.Remove(true, "/a"))
	assert.Nil(t, fs.Open("/a/b"))
	assert.Nil(t, fs.Open("/a/c/d"))
	assert.Nil(t, fs.Open("/a"))
	// Every sector the tree owned is free again.
	assert.Equal(t, baseline, fs.FreeMap().NumClear())
}

func TestRemoveNonEmptyNonRecursive(t *testing.T) {
	fs := mkFs(t)
	require.True(t, fs.Create("/a", 0, true))
	require.True(t, fs.Create("/a/b", 10, false))

	assert.False(t, fs.Remove(false, "/a"))
	assert.NotNil(t, fs.Open("/a/b"))

	require.True(t, fs.Remove(false, "/a/b"))
	assert.True(t, fs.Remove(false, "/a"))
}

func TestNoSpaceRollback(t *testing.T) {
	sp := super.MkFsSuper(16, nil)
	fs := MkFileSystem(sp, true)

	before := fs.FreeMap()
	require.False(t, fs.Create("/big", 12*super.SectorSize, false))

	after := fs.FreeMap()
	for s := uint64(0); s < 16; s++ {
		assert.Equal(t, before.Test(s), after.Test(s), "sector %d", s)
	}
}

func TestDirectoryFullBoundary(t *testing.T) {
	fs := mkFs(t)
	for i := uint64(0); i < super.NumDirEntries; i++ {
		require.True(t, fs.Create(fmt.Sprintf("/f%d", i), 0, false))
	}
	assert.False(t, fs.Create("/one-too-many", 0, false))
}

func TestOpenHandleCap(t *testing.T) {
	fs := mkFs(t)
	require.True(t, fs.Create("/f", 10, false))
	for i := 0; i < MaxOpenFiles; i++ {
		require.NotNil(t, fs.Open("/f"))
	}
	assert.Nil(t, fs.Open("/f"))
}

func TestNestedPaths(t *testing.T) {
	fs := mkFs(t)
	require.True(t, fs.Create("/a", 0, true))
	require.True(t, fs.Create("/a/b", 0, true))
	require.True(t, fs.Create("/a/b/c", 0, true))
	require.True(t, fs.Create("/a/b/c/leaf", 42, false))

	f := fs.Open("/a/b/c/leaf")
	require.NotNil(t, f)
	assert.Equal(t, uint64(42), f.Length())

	var buf bytes.Buffer
	fs.SetOutput(&buf)
	fs.List(true, "/a")
	assert.Equal(t, "b/\n    c/\n        leaf 42\n", buf.String())
}
