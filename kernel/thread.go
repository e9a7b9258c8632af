package kernel

import (
	"fmt"

	"github.com/mit-pdos/go-journal/util"
)

type Status int

const (
	JustCreated Status = iota
	Running
	Ready
	Blocked
	Zombie
)

func (s Status) String() string {
	switch s {
	case JustCreated:
		return "JUST_CREATED"
	case Running:
		return "RUNNING"
	case Ready:
		return "READY"
	case Blocked:
		return "BLOCKED"
	case Zombie:
		return "ZOMBIE"
	}
	return "UNKNOWN"
}

const (
	MinPriority = 0
	MaxPriority = 149
)

// NumUserRegs is the size of the saved user-mode register file.
const NumUserRegs = 40

const stackMagic uint32 = 0xdeadbeef

// AddrSpace is the user address space bound to a user-mode thread.
// Kernel threads have none.
type AddrSpace interface {
	SaveState()
	RestoreState()
}

// Thread is a schedulable entity. Each thread is backed by a goroutine
// parked on its scheduling baton; the context switch hands the baton
// to the incoming thread and parks the outgoing one.
type Thread struct {
	kernel *Kernel

	id            int
	name          string
	priority      int
	burstTime     int
	startTime     int
	startWaitTime int
	status        Status

	space     AddrSpace
	userRegs  [NumUserRegs]uint32
	savedRegs [NumUserRegs]uint32

	canary uint32
	baton  chan struct{}
}

func (t *Thread) ID() int { return t.id }

func (t *Thread) Name() string { return t.name }

func (t *Thread) Priority() int { return t.priority }

func (t *Thread) SetPriority(p int) {
	if p < MinPriority || p > MaxPriority {
		panic(fmt.Sprintf("SetPriority: %d out of range", p))
	}
	t.priority = p
}

func (t *Thread) BurstTime() int { return t.burstTime }

func (t *Thread) SetBurstTime(b int) { t.burstTime = b }

func (t *Thread) StartTime() int { return t.startTime }

func (t *Thread) SetStartTime(n int) { t.startTime = n }

func (t *Thread) StartWaitTime() int { return t.startWaitTime }

func (t *Thread) SetStartWaitTime(n int) { t.startWaitTime = n }

func (t *Thread) Status() Status { return t.status }

func (t *Thread) setStatus(s Status) { t.status = s }

func (t *Thread) Space() AddrSpace { return t.space }

func (t *Thread) SetSpace(s AddrSpace) { t.space = s }

// SaveUserState snapshots the user-mode registers across a switch.
func (t *Thread) SaveUserState() {
	t.savedRegs = t.userRegs
}

func (t *Thread) RestoreUserState() {
	t.userRegs = t.savedRegs
}

// CheckOverflow verifies the stack canary of a thread about to be
// switched out.
func (t *Thread) CheckOverflow() {
	if t.canary != stackMagic {
		panic(fmt.Sprintf("thread %d: stack overflow", t.id))
	}
}

// begin runs on a freshly dispatched thread, before its body: the
// previous thread may have finished and must be reclaimed now that we
// are off its stack.
func (t *Thread) begin() {
	t.kernel.Scheduler.CheckToBeDestroyed()
	t.kernel.Interrupt.SetLevel(IntOn)
}

// Yield relinquishes the CPU when another thread is ready to run. The
// next thread is chosen before the yielder goes back to its ready
// queue, so whenever any other thread is ready the CPU switches to it;
// with none ready, Yield returns at once.
func (t *Thread) Yield() {
	k := t.kernel
	oldLevel := k.Interrupt.SetLevel(IntOff)
	if t != k.CurrentThread {
		panic("Yield: not the running thread")
	}
	util.DPrintf(3, "Yielding thread %d\n", t.id)
	next := k.Scheduler.FindNextToRun()
	if next != nil {
		k.Scheduler.ReadyToRun(t)
		k.Scheduler.Run(next, false)
	}
	k.Interrupt.SetLevel(oldLevel)
}

// Sleep relinquishes the CPU without staying ready; someone else must
// ReadyToRun this thread to wake it. With finishing set the thread
// never runs again and is reclaimed one dispatch later.
func (t *Thread) Sleep(finishing bool) {
	k := t.kernel
	k.Interrupt.AssertOff()
	if t != k.CurrentThread {
		panic("Sleep: not the running thread")
	}
	util.DPrintf(3, "Sleeping thread %d finishing %v\n", t.id, finishing)
	if finishing {
		t.setStatus(Zombie)
	} else {
		t.setStatus(Blocked)
	}
	next := k.Scheduler.FindNextToRun()
	if next == nil {
		// This port has no idle loop: a thread may only block or
		// finish while some other thread is ready.
		panic("Sleep: no threads ready")
	}
	k.Scheduler.Run(next, finishing)
}

// Finish terminates the calling thread. Its memory is reclaimed one
// dispatch later, because a thread cannot free its own stack.
func (t *Thread) Finish() {
	k := t.kernel
	k.Interrupt.SetLevel(IntOff)
	if t != k.CurrentThread {
		panic("Finish: not the running thread")
	}
	util.DPrintf(3, "Finishing thread %d\n", t.id)
	t.Sleep(true)
}
