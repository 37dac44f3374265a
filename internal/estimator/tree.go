package estimator

import (
	"math/rand/v2"
	"slices"
)

// Node is one node of a fitted regression tree. Leaves have Feature == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int32
	Right     int32
	Value     float64
}

// Tree is a regression tree stored as a flat node slice rooted at index 0.
type Tree struct {
	Nodes []Node
}

// Predict walks the tree for one feature vector.
func (t *Tree) Predict(x []float64) float64 {
	i := int32(0)
	for {
		n := &t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type treeBuilder struct {
	x        [][]float64
	y        []float64
	maxDepth int
	minLeaf  int
	rng      *rand.Rand
	nodes    []Node
	buf      []int
}

// fitTree grows a tree over the sample indices (duplicates allowed).
func fitTree(x [][]float64, y []float64, samples []int, maxDepth, minLeaf int, rng *rand.Rand) Tree {
	b := &treeBuilder{
		x:        x,
		y:        y,
		maxDepth: maxDepth,
		minLeaf:  max(minLeaf, 1),
		rng:      rng,
		buf:      make([]int, len(samples)),
	}
	b.grow(samples, 0)
	return Tree{Nodes: b.nodes}
}

func (b *treeBuilder) grow(idx []int, depth int) int32 {
	id := int32(len(b.nodes))
	var sum, sumSq float64
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	n := float64(len(idx))
	mean := sum / n
	b.nodes = append(b.nodes, Node{Feature: -1, Value: mean})

	impurity := sumSq/n - mean*mean
	if len(idx) < 2*b.minLeaf || impurity <= 1e-12 || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return id
	}

	feature, threshold, ok := b.bestSplit(idx, sum)
	if !ok {
		return id
	}

	// Partition in place: left rows first.
	lo, hi := 0, len(idx)-1
	for lo <= hi {
		if b.x[idx[lo]][feature] <= threshold {
			lo++
		} else {
			idx[lo], idx[hi] = idx[hi], idx[lo]
			hi--
		}
	}
	left := b.grow(idx[:lo], depth+1)
	right := b.grow(idx[lo:], depth+1)

	node := &b.nodes[id]
	node.Feature = feature
	node.Threshold = threshold
	node.Left = left
	node.Right = right
	return id
}

// bestSplit maximises sumL²/nL + sumR²/nR, which minimises the summed
// squared error of the two children. Features are visited in random order
// so equal-gain ties break the same way scikit-learn's do: by draw.
func (b *treeBuilder) bestSplit(idx []int, total float64) (feature int, threshold float64, ok bool) {
	n := len(idx)
	order := b.buf[:n]
	best := 0.0
	nFeatures := len(b.x[idx[0]])

	for _, f := range b.rng.Perm(nFeatures) {
		copy(order, idx)
		slices.SortFunc(order, func(a, c int) int {
			va, vc := b.x[a][f], b.x[c][f]
			switch {
			case va < vc:
				return -1
			case va > vc:
				return 1
			default:
				return 0
			}
		})

		var left float64
		for k := 1; k < n; k++ {
			left += b.y[order[k-1]]
			if k < b.minLeaf || n-k < b.minLeaf {
				continue
			}
			lo, hi := b.x[order[k-1]][f], b.x[order[k]][f]
			if lo == hi {
				continue
			}
			right := total - left
			score := left*left/float64(k) + right*right/float64(n-k)
			if !ok || score > best {
				best = score
				feature = f
				threshold = lo + (hi-lo)/2
				if threshold >= hi {
					threshold = lo
				}
				ok = true
			}
		}
	}
	return feature, threshold, ok
}
