package kernel

import (
	"fmt"
	"io"

	"github.com/mit-pdos/go-journal/util"
)

// agingThreshold is how long a READY thread may wait, in total ticks,
// before its priority is bumped.
const agingThreshold = 1500

// agingBoost is the priority increment applied by one aging pass.
const agingBoost = 10

// Scheduler maintains the three ready queues of the multilevel
// feedback policy:
//
//	L1  priorities 100-149, ascending burst estimate, preemptive SJF
//	L2  priorities 50-99, descending priority, non-preemptive
//	L3  priorities 0-49, FIFO round-robin
//
// Every READY thread is in exactly one queue, and the queue matches
// its current priority band. All entry points assume interrupts are
// already disabled: on a uniprocessor that is the mutual exclusion.
type Scheduler struct {
	kernel *Kernel

	l1 *sortedList
	l2 *sortedList
	l3 *threadList

	// A finished thread parks here until the next dispatch, since it
	// cannot be reclaimed while we still run on its stack.
	toBeDestroyed *Thread
}

func mkScheduler(k *Kernel) *Scheduler {
	return &Scheduler{
		kernel: k,
		l1: mkSortedList(func(a, b *Thread) bool {
			return a.burstTime < b.burstTime
		}),
		l2: mkSortedList(func(a, b *Thread) bool {
			return a.priority > b.priority
		}),
		l3: mkThreadList(),
	}
}

// queueOf maps a priority to its band: 1, 2, or 3.
func queueOf(priority int) int {
	switch {
	case priority >= 100:
		return 1
	case priority >= 50:
		return 2
	default:
		return 3
	}
}

// ReadyToRun marks thread as ready and inserts it into the queue
// matching its priority band. An insertion into L1 may preempt the
// running thread under SJF.
func (s *Scheduler) ReadyToRun(thread *Thread) {
	k := s.kernel
	k.Interrupt.AssertOff()
	util.DPrintf(3, "Putting thread %d on ready list\n", thread.id)

	thread.setStatus(Ready)

	now := k.Stats.TotalTicks
	q := queueOf(thread.priority)
	switch q {
	case 1:
		s.l1.Insert(thread)
	case 2:
		s.l2.Insert(thread)
	default:
		s.l3.Append(thread)
	}
	k.tracef("Tick %d: Thread %d is inserted into queue L%d\n", now, thread.id, q)

	// The thread starts waiting now.
	thread.startWaitTime = now

	if q == 1 {
		s.maybePreempt(thread)
	}
}

// maybePreempt applies the SJF test: when thread has entered L1 and
// the running thread is a different thread in the L1 band, the running
// thread's next-burst estimate is recomputed from its elapsed user
// ticks, and it yields if the newcomer's estimate is strictly smaller.
func (s *Scheduler) maybePreempt(thread *Thread) {
	k := s.kernel
	cur := k.CurrentThread
	if queueOf(cur.priority) != 1 || cur.id == thread.id {
		return
	}
	actBurst := float64(k.Stats.UserTicks - cur.startTime)
	estBurst := 0.5*actBurst + 0.5*float64(cur.burstTime)
	if float64(thread.burstTime) < estBurst {
		cur.Yield()
	}
}

// FindNextToRun removes and returns the thread to dispatch next: the
// front of L1, else L2, else L3, else nil.
func (s *Scheduler) FindNextToRun() *Thread {
	k := s.kernel
	k.Interrupt.AssertOff()

	now := k.Stats.TotalTicks
	switch {
	case !s.l1.IsEmpty():
		k.tracef("Tick %d: Thread %d is removed from queue L1\n", now, s.l1.Front().id)
		return s.l1.RemoveFront()
	case !s.l2.IsEmpty():
		k.tracef("Tick %d: Thread %d is removed from queue L2\n", now, s.l2.Front().id)
		return s.l2.RemoveFront()
	case !s.l3.IsEmpty():
		k.tracef("Tick %d: Thread %d is removed from queue L3\n", now, s.l3.Front().id)
		return s.l3.RemoveFront()
	}
	return nil
}

// CheckAging bumps a READY thread that has waited at least the aging
// threshold, migrating it to a higher queue when the bump crosses a
// band boundary. Reports whether the thread moved into L1.
//
// A migration into L1 re-runs the SJF preemption test; L3 to L2 does
// not, since L2 is non-preemptive.
func (s *Scheduler) CheckAging(thread *Thread) bool {
	k := s.kernel
	k.Interrupt.AssertOff()
	now := k.Stats.TotalTicks
	if thread.Status() != Ready || now-thread.startWaitTime < agingThreshold {
		return false
	}

	oldPriority := thread.priority
	newPriority := oldPriority + agingBoost
	if newPriority > MaxPriority {
		newPriority = MaxPriority
	}
	thread.priority = newPriority
	if oldPriority != newPriority {
		k.tracef("Tick %d: Thread %d changes its priority from %d to %d\n",
			now, thread.id, oldPriority, newPriority)
	}

	if newPriority >= 100 && newPriority < 110 {
		if s.l2.Has(thread) {
			s.l2.Remove(thread)
		}
		s.l1.Insert(thread)
		k.tracef("Tick %d: Thread %d is removed from queue L2\n", now, thread.id)
		k.tracef("Tick %d: Thread %d is inserted into queue L1\n", now, thread.id)

		s.maybePreempt(thread)

		thread.startWaitTime = now
		return true
	} else if newPriority >= 50 && newPriority < 60 {
		s.l3.Remove(thread)
		s.l2.Insert(thread)
		k.tracef("Tick %d: Thread %d is removed from queue L3\n", now, thread.id)
		k.tracef("Tick %d: Thread %d is inserted into queue L2\n", now, thread.id)
	} else if s.l2.Has(thread) {
		// A bump inside the L2 band re-sorts the thread, so L2 stays in
		// descending priority order.
		s.l2.Remove(thread)
		s.l2.Insert(thread)
	}

	thread.startWaitTime = now
	return false
}

// AgeReadyThreads runs the aging pass over every READY thread. The
// queues are snapshotted first, since aging migrates threads between
// them.
func (s *Scheduler) AgeReadyThreads() {
	k := s.kernel
	k.Interrupt.AssertOff()
	var all []*Thread
	all = append(all, s.l1.Snapshot()...)
	all = append(all, s.l2.Snapshot()...)
	all = append(all, s.l3.Snapshot()...)
	for _, t := range all {
		s.CheckAging(t)
	}
}

// Run dispatches the CPU to nextThread. The outgoing thread's status
// has already been set by the caller (ready, blocked, or zombie). With
// finishing set the outgoing thread parks in the single-slot
// toBeDestroyed register and its goroutine exits; reclamation happens
// on the next dispatch, off its stack.
func (s *Scheduler) Run(nextThread *Thread, finishing bool) {
	k := s.kernel
	oldThread := k.CurrentThread

	now := k.Stats.TotalTicks
	nowUser := k.Stats.UserTicks

	nextThread.startTime = nowUser
	oldThreadTime := nowUser - oldThread.startTime

	k.tracef("Tick %d: Thread %d is now selected for execution\n", now, nextThread.id)
	k.tracef("Tick %d: Thread %d is replaced, and it has executed %d ticks\n",
		now, oldThread.id, oldThreadTime)

	k.Interrupt.AssertOff()

	if finishing {
		if s.toBeDestroyed != nil {
			panic("Run: toBeDestroyed slot occupied")
		}
		s.toBeDestroyed = oldThread
	}

	if oldThread.space != nil {
		oldThread.SaveUserState()
		oldThread.space.SaveState()
	}
	oldThread.CheckOverflow()

	k.CurrentThread = nextThread
	nextThread.setStatus(Running)

	util.DPrintf(3, "Switching from %s to %s\n", oldThread.name, nextThread.name)

	// Hand the CPU over. Everything the incoming thread may observe
	// has been updated above.
	nextThread.baton <- struct{}{}
	if finishing {
		// The caller's goroutine unwinds and exits; cleanup runs on
		// the incoming thread.
		return
	}
	<-oldThread.baton

	// We are back, running oldThread; interrupts are off again.
	k.Interrupt.AssertOff()
	util.DPrintf(3, "Now in thread %s\n", oldThread.name)

	s.CheckToBeDestroyed()

	if oldThread.space != nil {
		oldThread.RestoreUserState()
		oldThread.space.RestoreState()
	}
}

// CheckToBeDestroyed reclaims a thread that finished before the last
// dispatch. It must never be the thread whose stack is executing.
func (s *Scheduler) CheckToBeDestroyed() {
	t := s.toBeDestroyed
	if t == nil {
		return
	}
	if t == s.kernel.CurrentThread {
		panic("CheckToBeDestroyed: reclaiming the running thread")
	}
	util.DPrintf(3, "Destroying thread %d\n", t.id)
	s.toBeDestroyed = nil
}

// Print dumps the queue contents, for debugging.
func (s *Scheduler) Print(w io.Writer) {
	dump := func(name string, threads []*Thread) {
		fmt.Fprintf(w, "%s:", name)
		for _, t := range threads {
			fmt.Fprintf(w, " %d(pri %d burst %d)", t.id, t.priority, t.burstTime)
		}
		fmt.Fprintf(w, "\n")
	}
	dump("L1", s.l1.Snapshot())
	dump("L2", s.l2.Snapshot())
	dump("L3", s.l3.Snapshot())
}
