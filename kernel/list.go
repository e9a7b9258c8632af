package kernel

// threadList is a FIFO queue of threads.
type threadList struct {
	threads []*Thread
}

func mkThreadList() *threadList {
	return &threadList{}
}

func (l *threadList) Append(t *Thread) {
	l.threads = append(l.threads, t)
}

func (l *threadList) IsEmpty() bool {
	return len(l.threads) == 0
}

func (l *threadList) Front() *Thread {
	return l.threads[0]
}

func (l *threadList) RemoveFront() *Thread {
	t := l.threads[0]
	l.threads = l.threads[1:]
	return t
}

func (l *threadList) Has(t *Thread) bool {
	for _, x := range l.threads {
		if x == t {
			return true
		}
	}
	return false
}

func (l *threadList) Remove(t *Thread) {
	for i, x := range l.threads {
		if x == t {
			l.threads = append(l.threads[:i:i], l.threads[i+1:]...)
			return
		}
	}
}

// Snapshot copies the current membership, so callers may mutate the
// queue while iterating.
func (l *threadList) Snapshot() []*Thread {
	out := make([]*Thread, len(l.threads))
	copy(out, l.threads)
	return out
}

// sortedList keeps threads ordered by a strict-less comparison.
// Insertion is stable: a new thread goes after every equal key, so
// ties fall back to insertion order.
type sortedList struct {
	threadList
	less func(a, b *Thread) bool
}

func mkSortedList(less func(a, b *Thread) bool) *sortedList {
	return &sortedList{less: less}
}

func (l *sortedList) Insert(t *Thread) {
	for i, x := range l.threads {
		if l.less(t, x) {
			l.threads = append(l.threads[:i:i],
				append([]*Thread{t}, l.threads[i:]...)...)
			return
		}
	}
	l.threads = append(l.threads, t)
}
