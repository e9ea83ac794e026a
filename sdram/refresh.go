package sdram

// tickRefresh advances the free-running refresh timer by one cycle.
func tickRefresh(r RefreshState, interval int) RefreshState {
	r.Counter++
	if r.Counter >= interval {
		r.Counter = 0
		r.Due = true
	}

	return r
}
