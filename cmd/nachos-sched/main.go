package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tim70036/OS-Nachos/kernel"
)

// worker burns user ticks in chunks, yielding the CPU between chunks.
func worker(k *kernel.Kernel, bursts, chunk int, done *int) func() {
	return func() {
		self := k.CurrentThread
		for i := 0; i < bursts; i++ {
			k.Stats.AdvanceUser(chunk)
			self.Yield()
		}
		(*done)++
	}
}

func main() {
	nL1 := flag.Int("l1", 2, "threads in the SJF band")
	nL2 := flag.Int("l2", 2, "threads in the priority band")
	nL3 := flag.Int("l3", 2, "threads in the round-robin band")
	bursts := flag.Int("bursts", 5, "work chunks per thread")
	chunk := flag.Int("chunk", 30, "user ticks per chunk")
	flag.Parse()

	k := kernel.MkKernel()
	total := *nL1 + *nL2 + *nL3
	var done int

	for i := 0; i < *nL1; i++ {
		k.Fork(fmt.Sprintf("sjf-%d", i), 100+(i*10)%50, (i+1)**chunk,
			worker(k, *bursts, *chunk, &done))
	}
	for i := 0; i < *nL2; i++ {
		k.Fork(fmt.Sprintf("pri-%d", i), 50+(i*10)%50, 0,
			worker(k, *bursts, *chunk, &done))
	}
	for i := 0; i < *nL3; i++ {
		k.Fork(fmt.Sprintf("rr-%d", i), (i*10)%50, 0,
			worker(k, *bursts, *chunk, &done))
	}

	// The main thread sits in the round-robin band and drives the
	// aging sweeps between its own time slices.
	for done < total {
		k.Stats.AdvanceSystem(10)
		oldLevel := k.Interrupt.SetLevel(kernel.IntOff)
		k.Scheduler.AgeReadyThreads()
		k.Interrupt.SetLevel(oldLevel)
		k.CurrentThread.Yield()
	}

	fmt.Printf("all %d threads finished\n", total)
	k.Stats.Print(os.Stdout)
}
