package xgboost

// Node is a single node of a regression tree. Leaves have Feature == -1 and
// LeftChild == RightChild == -1.
type Node struct {
	Feature    int
	Threshold  float64 // rows with x <= Threshold go left
	LeftChild  int
	RightChild int
	Value      float64 // leaf weight, already scaled by the learning rate
	Gain       float64 // loss reduction of the split
	Cover      float64 // sum of hessians reaching the node
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return n.LeftChild < 0 && n.RightChild < 0
}

// Tree is one boosting round. Nodes[0] is the root.
type Tree struct {
	Nodes []Node
}

// Predict walks the tree for a single row.
func (t *Tree) Predict(row []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	idx := 0
	for {
		n := &t.Nodes[idx]
		if n.IsLeaf() {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			idx = n.LeftChild
		} else {
			idx = n.RightChild
		}
	}
}

// NumLeaves returns the number of leaves in the tree.
func (t *Tree) NumLeaves() int {
	count := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			count++
		}
	}
	return count
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(idx int) int
	walk = func(idx int) int {
		n := &t.Nodes[idx]
		if n.IsLeaf() {
			return 0
		}
		l, r := walk(n.LeftChild), walk(n.RightChild)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	return walk(0)
}
