package kernel

import (
	"io"

	"github.com/rodaine/table"
)

// Statistics is the kernel's tick clock. TotalTicks drives the trace
// timestamps and the aging policy; UserTicks drives the burst
// estimates for SJF preemption.
type Statistics struct {
	TotalTicks  int
	UserTicks   int
	SystemTicks int
	IdleTicks   int
}

// AdvanceUser accounts n ticks of user-mode execution.
func (st *Statistics) AdvanceUser(n int) {
	st.UserTicks += n
	st.TotalTicks += n
}

// AdvanceSystem accounts n ticks of kernel-mode execution.
func (st *Statistics) AdvanceSystem(n int) {
	st.SystemTicks += n
	st.TotalTicks += n
}

func (st *Statistics) Print(w io.Writer) {
	tbl := table.New("clock", "ticks")
	tbl.AddRow("total", st.TotalTicks)
	tbl.AddRow("user", st.UserTicks)
	tbl.AddRow("system", st.SystemTicks)
	tbl.AddRow("idle", st.IdleTicks)
	tbl.WithWriter(w)
	tbl.Print()
}
