package storage

// Stats summarizes the store record for dashboards and the inspect tool.
type Stats struct {
	TotalBooks   int      `json:"totalBooks"`
	TotalUsers   int      `json:"totalUsers"`
	Version      int64    `json:"version"`
	LastModified string   `json:"lastModified"`
	Categories   []string `json:"categories"`
	TotalStock   int      `json:"totalStock"`
}

// Stats computes summary statistics over the current record. Categories keep
// first-seen order.
func (s *Store) Stats() (Stats, error) {
	rec, err := s.read()
	if err != nil {
		return Stats{}, err
	}

	st := Stats{
		TotalBooks:   len(rec.Books),
		TotalUsers:   len(rec.Users),
		Version:      rec.Version,
		LastModified: rec.LastModified,
	}

	seen := make(map[string]bool)
	for i := range rec.Books {
		b := &rec.Books[i]
		st.TotalStock += b.Stock
		if !seen[b.Category] {
			seen[b.Category] = true
			st.Categories = append(st.Categories, b.Category)
		}
	}
	return st, nil
}
