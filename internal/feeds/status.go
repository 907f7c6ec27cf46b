package feeds

// StatusSink receives single-line progress reports and menu
// invalidation signals from background work. Implementations must
// tolerate concurrent invocation and must not block the caller.
type StatusSink interface {
	ChangeStatus(status string)
	InvalidateMenus()
}

// NopSink discards all status reports.
type NopSink struct{}

func (NopSink) ChangeStatus(string) {}
func (NopSink) InvalidateMenus()    {}

// FuncSink adapts a pair of functions to StatusSink. A nil function
// is skipped.
type FuncSink struct {
	Status     func(string)
	Invalidate func()
}

func (s FuncSink) ChangeStatus(status string) {
	if s.Status != nil {
		s.Status(status)
	}
}

func (s FuncSink) InvalidateMenus() {
	if s.Invalidate != nil {
		s.Invalidate()
	}
}
