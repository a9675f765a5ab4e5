package parley

// leadershipFanout relays a leadership flip to every listener.
type leadershipFanout []func(leader bool)

func (f leadershipFanout) onChange(leader bool) {
	for _, listener := range f {
		if listener == nil {
			continue
		}
		listener(leader)
	}
}
