package pathing

// memory is a fixed-capacity FIFO of recently chosen nodes
type memory struct {
	nodes []int
	size  int
}

func newMemory(size int) *memory {
	return &memory{nodes: make([]int, 0, size), size: size}
}

func (m *memory) push(node int) {
	if m.size == 0 {
		return
	}
	if len(m.nodes) == m.size {
		copy(m.nodes, m.nodes[1:])
		m.nodes = m.nodes[:m.size-1]
	}
	m.nodes = append(m.nodes, node)
}

func (m *memory) recent() []int {
	return m.nodes
}
