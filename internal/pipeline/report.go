package pipeline

// Drop records one item the pipeline refused.
type Drop struct {
	Reason     string `json:"reason"`
	Identifier string `json:"identifier,omitempty"`
	Err        error  `json:"-"`
}

// Report summarizes a run. Accepted and Unresolved count products.
type Report struct {
	RunID      string `json:"run_id"`
	State      string `json:"state"`
	Accepted   int    `json:"accepted"`
	Dropped    int    `json:"dropped"`
	Unresolved int    `json:"unresolved"`
	Drops      []Drop `json:"drops,omitempty"`
	Fatal      string `json:"fatal,omitempty"`
}

// Snapshot returns the live counters.
func (p *Pipeline) Snapshot() Report {
	state := p.State()

	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	r := Report{
		RunID:      p.runID,
		State:      state.String(),
		Accepted:   p.accepted,
		Dropped:    len(p.drops),
		Unresolved: p.unresolved,
		Drops:      append([]Drop(nil), p.drops...),
	}
	if p.fatal != nil {
		r.Fatal = p.fatal.Error()
	}
	return r
}
