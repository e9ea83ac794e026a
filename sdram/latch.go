package sdram

// requestLatch holds at most one admitted request.
type requestLatch struct {
	op    PendingOperation
	valid bool
}

// admit captures the request if the latch is empty and the controller is
// ready. It returns true if the request was captured.
func (l *requestLatch) admit(req MemoryRequest, ready bool) bool {
	if !ready || l.valid || !req.Valid {
		return false
	}

	l.op = PendingOperation{
		IsWrite: req.IsWrite,
		Address: req.Address,
		Data:    req.Data,
	}
	l.valid = true

	return true
}

func (l *requestLatch) clear() {
	*l = requestLatch{}
}
