package graph

// Clipboard holds nodes and the edges between them captured by Copy.
type Clipboard struct {
	Nodes []*Node
	Edges []*Edge
}

// Empty reports whether the clipboard holds nothing.
func (c *Clipboard) Empty() bool {
	return c == nil || len(c.Nodes) == 0
}

// Copy captures the selected nodes and only the edges whose both endpoints
// are selected. Unknown ids are ignored. Returns the captured clipboard.
func (s *Store) Copy(ids []string) *Clipboard {
	s.mu.Lock()
	defer s.mu.Unlock()

	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}

	cb := &Clipboard{}
	for _, n := range s.nodes {
		if selected[n.ID] {
			cb.Nodes = append(cb.Nodes, n)
		}
	}
	for _, e := range s.edges {
		if selected[e.Source] && selected[e.Target] {
			cb.Edges = append(cb.Edges, e)
		}
	}
	s.clipboard = cb
	return cb
}

// Clipboard returns the last captured clipboard, or nil.
func (s *Store) Clipboard() *Clipboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clipboard
}

// Paste inserts the clipboard contents with every id remapped to a freshly
// minted one and positions shifted by offset. Returns the new nodes.
//
// Pasted nodes keep their configuration but not their run results: status
// is reset to idle.
func (s *Store) Paste(offset Position) []*Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	cb := s.clipboard
	if cb.Empty() {
		return nil
	}

	remap := make(map[string]string, len(cb.Nodes))
	pasted := make([]*Node, 0, len(cb.Nodes))
	for _, n := range cb.Nodes {
		cp := *n
		cp.ID = s.mintID(n.Type)
		cp.Position = Position{X: n.Position.X + offset.X, Y: n.Position.Y + offset.Y}
		cp.Data = n.Data.Merge(Data{FieldStatus: string(StatusIdle), FieldError: nil})
		remap[n.ID] = cp.ID
		pasted = append(pasted, &cp)
	}

	edges := make([]*Edge, 0, len(cb.Edges))
	for _, e := range cb.Edges {
		s.edgeSeq++
		spec := EdgeSpec{
			Source:       remap[e.Source],
			Target:       remap[e.Target],
			SourceHandle: e.SourcePort(),
			TargetHandle: e.TargetPort(),
			HasPause:     e.Data.HasPause,
		}
		edges = append(edges, &Edge{
			ID:           edgeID(spec, s.edgeSeq),
			Source:       spec.Source,
			Target:       spec.Target,
			SourceHandle: handlePtr(spec.SourceHandle),
			TargetHandle: handlePtr(spec.TargetHandle),
			Data:         e.Data,
		})
	}

	s.nodes = appendCopy(s.nodes, pasted...)
	s.edges = appendCopy(s.edges, edges...)
	return pasted
}
