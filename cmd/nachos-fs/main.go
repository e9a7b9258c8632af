package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/tim70036/OS-Nachos/filesys"
	"github.com/tim70036/OS-Nachos/super"
	"github.com/tim70036/OS-Nachos/util/timed_disk"
)

// readHostFile slurps a file from the host file system.
func readHostFile(path string) []byte {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		panic(fmt.Errorf("open %s: %w", path, err))
	}
	defer unix.Close(fd)

	var data []byte
	buf := make([]byte, 4096)
	for {
		n, err := unix.Read(fd, buf)
		if err != nil {
			panic(fmt.Errorf("read %s: %w", path, err))
		}
		if n == 0 {
			break
		}
		data = append(data, buf[:n]...)
	}
	return data
}

func cpIn(fs *filesys.FileSystem, arg string) {
	parts := strings.SplitN(arg, ":", 2)
	if len(parts) != 2 {
		fmt.Fprintf(os.Stderr, "cp: want host:nachos, got %q\n", arg)
		os.Exit(1)
	}
	data := readHostFile(parts[0])
	if !fs.Create(parts[1], uint64(len(data)), false) {
		fmt.Fprintf(os.Stderr, "cp: create %s failed\n", parts[1])
		os.Exit(1)
	}
	f := fs.Open(parts[1])
	if f == nil {
		fmt.Fprintf(os.Stderr, "cp: open %s failed\n", parts[1])
		os.Exit(1)
	}
	if n := f.WriteAt(data, 0); n != uint64(len(data)) {
		fmt.Fprintf(os.Stderr, "cp: short write (%d of %d)\n", n, len(data))
		os.Exit(1)
	}
}

func cat(fs *filesys.FileSystem, path string) {
	f := fs.Open(path)
	if f == nil {
		fmt.Fprintf(os.Stderr, "cat: %s not found\n", path)
		os.Exit(1)
	}
	data := make([]byte, f.Length())
	f.ReadAt(data, 0)
	os.Stdout.Write(data)
}

func main() {
	var diskPath string
	flag.StringVar(&diskPath, "disk", "", "disk image path (default: in-memory)")
	size := flag.Uint64("size", 1024, "disk size in sectors")
	format := flag.Bool("format", false, "format the disk")
	mkdirPath := flag.String("mkdir", "", "create a directory at this path")
	cpArg := flag.String("cp", "", "copy a host file in: host:nachos")
	lsPath := flag.String("ls", "", "list the directory at this path")
	rmPath := flag.String("rm", "", "remove the file or directory at this path")
	recursive := flag.Bool("r", false, "recurse for -ls and -rm")
	catPath := flag.String("cat", "", "print the file at this path")
	printFs := flag.Bool("print", false, "dump bitmap, headers, and root directory")
	showStats := flag.Bool("stats", false, "print op stats at exit")
	flag.Parse()

	var name *string
	if diskPath != "" {
		name = &diskPath
	}
	sp := super.MkFsSuper(*size, name)
	td := timed_disk.New(sp.Disk)
	sp.Disk = td
	fs := filesys.MkFileSystem(sp, *format)

	statSig := make(chan os.Signal, 1)
	signal.Notify(statSig, syscall.SIGUSR1)
	go func() {
		for range statSig {
			fs.WriteOpStats(os.Stderr)
			td.WriteStats(os.Stderr)
		}
	}()

	if *mkdirPath != "" {
		if !fs.Create(*mkdirPath, 0, true) {
			fmt.Fprintf(os.Stderr, "mkdir: %s failed\n", *mkdirPath)
			os.Exit(1)
		}
	}
	if *cpArg != "" {
		cpIn(fs, *cpArg)
	}
	if *lsPath != "" {
		fs.List(*recursive, *lsPath)
	}
	if *catPath != "" {
		cat(fs, *catPath)
	}
	if *rmPath != "" {
		if !fs.Remove(*recursive, *rmPath) {
			fmt.Fprintf(os.Stderr, "rm: %s failed\n", *rmPath)
			os.Exit(1)
		}
	}
	if *printFs {
		fs.Print()
	}
	if *showStats {
		fs.WriteOpStats(os.Stdout)
		td.WriteStats(os.Stdout)
	}
}
