// Package kernel is the thread system: a cooperative uniprocessor
// kernel with goroutine-backed threads and a three-level feedback
// scheduler. The kernel context is passed explicitly; there are no
// package globals.
package kernel

import (
	"fmt"
	"io"
	"os"
)

type Kernel struct {
	CurrentThread *Thread
	Stats         *Statistics
	Interrupt     *Interrupt
	Scheduler     *Scheduler

	// Trace receives the scheduling log lines.
	Trace io.Writer

	nextTid int
}

// MkKernel bootstraps the kernel with the caller as the running main
// thread.
func MkKernel() *Kernel {
	k := &Kernel{
		Stats:     &Statistics{},
		Interrupt: mkInterrupt(),
		Trace:     os.Stdout,
	}
	k.Scheduler = mkScheduler(k)

	main := k.mkThread("main", MinPriority, 0)
	main.setStatus(Running)
	k.CurrentThread = main
	return k
}

func (k *Kernel) mkThread(name string, priority, burst int) *Thread {
	if priority < MinPriority || priority > MaxPriority {
		panic(fmt.Sprintf("mkThread: priority %d out of range", priority))
	}
	t := &Thread{
		kernel:    k,
		id:        k.nextTid,
		name:      name,
		priority:  priority,
		burstTime: burst,
		status:    JustCreated,
		canary:    stackMagic,
		baton:     make(chan struct{}, 1),
	}
	k.nextTid++
	return t
}

// Fork creates a thread running fn and makes it ready. The backing
// goroutine parks on the thread's baton until its first dispatch; fn
// runs with interrupts enabled and the thread finishes when it
// returns.
func (k *Kernel) Fork(name string, priority, burst int, fn func()) *Thread {
	t := k.mkThread(name, priority, burst)
	go func() {
		<-t.baton
		t.begin()
		fn()
		t.Finish()
	}()

	oldLevel := k.Interrupt.SetLevel(IntOff)
	k.Scheduler.ReadyToRun(t)
	k.Interrupt.SetLevel(oldLevel)
	return t
}

func (k *Kernel) tracef(format string, a ...interface{}) {
	fmt.Fprintf(k.Trace, format, a...)
}
