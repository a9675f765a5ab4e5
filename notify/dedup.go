package notify

// dedupSet is a bounded set of already-notified message keys. When the
// capacity is exceeded the oldest keys are evicted first.
type dedupSet struct {
	max   int
	seen  map[string]struct{}
	order []string
}

func newDedupSet(max int) *dedupSet {
	return &dedupSet{
		max:  max,
		seen: make(map[string]struct{}),
	}
}

func (d *dedupSet) contains(key string) bool {
	_, ok := d.seen[key]
	return ok
}

func (d *dedupSet) add(key string) {
	if _, ok := d.seen[key]; ok {
		return
	}
	d.seen[key] = struct{}{}
	d.order = append(d.order, key)
	if d.max > 0 && len(d.order) > d.max {
		trim := len(d.order) - d.max
		for _, old := range d.order[:trim] {
			delete(d.seen, old)
		}
		d.order = d.order[trim:]
	}
}
