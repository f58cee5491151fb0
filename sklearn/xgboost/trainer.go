package xgboost

import (
	"math"
)

var posInf = math.Inf(1)

// kRtEps is the smallest loss reduction that still counts as a split.
const kRtEps = 1e-6

// treeParams are the per-tree growth parameters.
type treeParams struct {
	MaxDepth       int
	LearningRate   float64
	RegLambda      float64
	Gamma          float64
	MinChildWeight float64
}

// treeBuilder grows one tree per boosting round on pre-binned features.
type treeBuilder struct {
	params treeParams
	bins   *binMapper
	binned [][]uint16 // [feature][row]
	grad   []float64
	hess   []float64

	tree  *Tree
	delta []float64 // per-row contribution of the current tree
}

func newTreeBuilder(params treeParams, bins *binMapper, binned [][]uint16, nRows int) *treeBuilder {
	return &treeBuilder{
		params: params,
		bins:   bins,
		binned: binned,
		grad:   make([]float64, nRows),
		hess:   make([]float64, nRows),
		delta:  make([]float64, nRows),
	}
}

// splitInfo is the best split found for a node.
type splitInfo struct {
	Feature int
	Bin     int
	Gain    float64
	Valid   bool
}

// build grows a tree from the current gradients. After it returns,
// b.delta[i] holds the tree's output for training row i.
func (b *treeBuilder) build(indices []int) *Tree {
	b.tree = &Tree{Nodes: make([]Node, 0, 1<<uint(minInt(b.params.MaxDepth, 10)))}
	b.buildNode(indices, 0)
	return b.tree
}

func (b *treeBuilder) buildNode(indices []int, depth int) int {
	G, H := b.sums(indices)
	nodeIdx := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{
		Feature:    -1,
		LeftChild:  -1,
		RightChild: -1,
		Cover:      H,
	})

	if depth >= b.params.MaxDepth || len(indices) < 2 || H < 2*b.params.MinChildWeight {
		b.makeLeaf(nodeIdx, indices, G, H)
		return nodeIdx
	}

	best := b.findBestSplit(indices, G, H)
	if !best.Valid {
		b.makeLeaf(nodeIdx, indices, G, H)
		return nodeIdx
	}

	left, right := b.partition(indices, best.Feature, best.Bin)
	threshold := b.bins.Bounds[best.Feature][best.Bin]

	leftIdx := b.buildNode(left, depth+1)
	rightIdx := b.buildNode(right, depth+1)

	// append may have moved the backing array
	n := &b.tree.Nodes[nodeIdx]
	n.Feature = best.Feature
	n.Threshold = threshold
	n.LeftChild = leftIdx
	n.RightChild = rightIdx
	n.Gain = best.Gain
	return nodeIdx
}

func (b *treeBuilder) makeLeaf(nodeIdx int, indices []int, G, H float64) {
	value := b.leafWeight(G, H) * b.params.LearningRate
	b.tree.Nodes[nodeIdx].Value = value
	for _, i := range indices {
		b.delta[i] = value
	}
}

func (b *treeBuilder) sums(indices []int) (G, H float64) {
	for _, i := range indices {
		G += b.grad[i]
		H += b.hess[i]
	}
	return G, H
}

// findBestSplit scans the gradient histogram of every feature. Ties keep the
// first feature and the lowest bin.
func (b *treeBuilder) findBestSplit(indices []int, G, H float64) splitInfo {
	best := splitInfo{Gain: b.params.Gamma + kRtEps}
	parentScore := b.score(G, H)

	for f := range b.binned {
		nb := b.bins.NumBins(f)
		if nb < 2 {
			continue
		}
		gHist := make([]float64, nb)
		hHist := make([]float64, nb)
		col := b.binned[f]
		for _, i := range indices {
			gHist[col[i]] += b.grad[i]
			hHist[col[i]] += b.hess[i]
		}

		var GL, HL float64
		for bin := 0; bin < nb-1; bin++ {
			GL += gHist[bin]
			HL += hHist[bin]
			if hHist[bin] == 0 && gHist[bin] == 0 {
				continue
			}
			GR, HR := G-GL, H-HL
			if HL < b.params.MinChildWeight || HR < b.params.MinChildWeight {
				continue
			}
			gain := b.splitGain(GL, HL, GR, HR, parentScore)
			if gain > best.Gain {
				best = splitInfo{Feature: f, Bin: bin, Gain: gain, Valid: true}
			}
		}
	}
	if best.Valid {
		best.Gain -= b.params.Gamma
	}
	return best
}

// splitGain is 0.5 * [GL²/(HL+λ) + GR²/(HR+λ) - G²/(H+λ)].
func (b *treeBuilder) splitGain(GL, HL, GR, HR, parentScore float64) float64 {
	return 0.5 * (b.score(GL, HL) + b.score(GR, HR) - parentScore)
}

func (b *treeBuilder) score(G, H float64) float64 {
	return G * G / (H + b.params.RegLambda)
}

// leafWeight is the optimal weight -G/(H+λ).
func (b *treeBuilder) leafWeight(G, H float64) float64 {
	return -G / (H + b.params.RegLambda)
}

func (b *treeBuilder) partition(indices []int, feature, bin int) (left, right []int) {
	col := b.binned[feature]
	left = make([]int, 0, len(indices))
	right = make([]int, 0, len(indices))
	for _, i := range indices {
		if int(col[i]) <= bin {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
