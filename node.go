package hnsw

// Node is a single element of the layered proximity graph. Its id doubles as
// the index of the item it represents.
type Node struct {
	// ID is the dense node id, assigned in insertion order and never reused.
	ID uint32

	// MaxLayer is the top layer this node participates in. Assigned at
	// creation, never changes.
	MaxLayer int

	// Connections holds one neighbor list per layer, layer 0 first.
	Connections [][]uint32
}

// nodeStore is the append-only array of graph nodes. Neighbor lists are
// mutated only by the writer; readers detect concurrent mutation through the
// index version counter.
type nodeStore struct {
	mmax  int // degree cap on layers > 0
	mmax0 int // degree cap on layer 0
	nodes []*Node
}

func newNodeStore(m, capacity int) *nodeStore {
	return &nodeStore{
		mmax:  m,
		mmax0: mmax0Multiplier * m,
		nodes: make([]*Node, 0, capacity),
	}
}

// maxConnections returns the degree cap Mmax for the given layer.
func (s *nodeStore) maxConnections(layer int) int {
	if layer == 0 {
		return s.mmax0
	}
	return s.mmax
}

func (s *nodeStore) len() int { return len(s.nodes) }

func (s *nodeStore) node(id uint32) *Node { return s.nodes[id] }

// append creates a node at the next dense id with empty neighbor lists.
// Each list is reserved to Mmax+1 so the overshoot during shrink never
// reallocates.
func (s *nodeStore) append(maxLayer int) *Node {
	n := &Node{
		ID:          uint32(len(s.nodes)),
		MaxLayer:    maxLayer,
		Connections: make([][]uint32, maxLayer+1),
	}
	for l := 0; l <= maxLayer; l++ {
		n.Connections[l] = make([]uint32, 0, s.maxConnections(l)+1)
	}
	s.nodes = append(s.nodes, n)
	return n
}

// connections returns the neighbor list of id at layer, or nil when the node
// does not reach that layer.
func (s *nodeStore) connections(id uint32, layer int) []uint32 {
	n := s.nodes[id]
	if layer > n.MaxLayer {
		return nil
	}
	return n.Connections[layer]
}
