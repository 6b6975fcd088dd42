package ngram

// OrderStats holds aggregated statistics for a single table.
type OrderStats struct {
	Order       int `json:"order"`
	Keys        int `json:"keys"`        // The number of unique keys.
	Transitions int `json:"transitions"` // The number of unique key->symbol links.
	TotalWeight int `json:"total_weight"`
}

// ModelStats holds aggregated statistics for a single model.
type ModelStats struct {
	Name      string       `json:"name"`
	Words     int          `json:"words"`
	MaxOrder  int          `json:"max_order"`
	Intensity float64      `json:"intensity,omitempty"`
	Orders    []OrderStats `json:"orders"`
}

// Stats returns a snapshot of the model's statistics.
func (m *Model) Stats() ModelStats {
	stats := ModelStats{
		Name:     m.name,
		Words:    len(m.words),
		MaxOrder: m.MaxOrder(),
		Orders:   make([]OrderStats, 0, len(m.tables)),
	}
	for _, t := range m.tables {
		transitions, weight := t.transitionCount()
		stats.Orders = append(stats.Orders, OrderStats{
			Order:       t.order,
			Keys:        t.Len(),
			Transitions: transitions,
			TotalWeight: weight,
		})
	}
	return stats
}

// Stats returns the statistics of every model in the set, ordered by name.
func (s *ActiveSet) Stats() []ModelStats {
	out := make([]ModelStats, 0, len(s.names))
	for _, name := range s.names {
		e := s.entries[name]
		st := e.Model.Stats()
		st.Name = name
		st.Intensity = e.Intensity
		out = append(out, st)
	}
	return out
}
