// Package matching computes maximum-weight matchings in general graphs.
//
// MaxWeightMatching implements Edmonds' primal-dual blossom algorithm in its
// O(n³) form. All solver state lives in index-addressed slices: vertices
// occupy slots 0..n-1, non-trivial blossoms occupy slots n..2n-1, and edge
// endpoints are addressed as 2k (edge k's I side) and 2k+1 (its J side), so
// endpoint^1 is always the opposite end of the same edge.
//
// Weights are integers so that dual variables stay exact. Callers with real
// valued weights should scale them first.
package matching

import (
	"errors"
	"fmt"
)

// Unmatched marks a vertex without a partner in the result of MaxWeightMatching.
const Unmatched = -1

// ErrNegativeVertex is returned for edges that reference a negative vertex index.
var ErrNegativeVertex = errors.New("matching: vertex index must not be negative")

// ErrSelfLoop is returned for edges joining a vertex to itself.
var ErrSelfLoop = errors.New("matching: edge endpoints must differ")

// ErrVertexOutOfRange is returned for edges that reference a vertex at or above MaxVertices.
var ErrVertexOutOfRange = errors.New("matching: vertex index out of range")

// MaxVertices bounds the vertex indices MaxWeightMatching accepts. Solver
// memory grows with the largest index, not with the number of edges.
const MaxVertices = 1 << 16

// Edge is an undirected weighted edge between vertices I and J.
type Edge struct {
	I, J   int
	Weight int64
}

// MaxWeightMatching returns, for every vertex 0..max index, the vertex it is
// matched to or Unmatched. When maxCardinality is set the result is a
// maximum-weight matching among the matchings of maximum cardinality.
//
// Ties between equally good matchings are resolved by search order.
func MaxWeightMatching(edges []Edge, maxCardinality bool) ([]int, error) {
	if len(edges) == 0 {
		return []int{}, nil
	}
	nvertex := 0
	for k, e := range edges {
		if e.I < 0 || e.J < 0 {
			return nil, fmt.Errorf("edge %d (%d, %d): %w", k, e.I, e.J, ErrNegativeVertex)
		}
		if e.I == e.J {
			return nil, fmt.Errorf("edge %d (%d, %d): %w", k, e.I, e.J, ErrSelfLoop)
		}
		if e.I >= MaxVertices || e.J >= MaxVertices {
			return nil, fmt.Errorf("edge %d (%d, %d): limit %d: %w", k, e.I, e.J, MaxVertices, ErrVertexOutOfRange)
		}
		if e.I >= nvertex {
			nvertex = e.I + 1
		}
		if e.J >= nvertex {
			nvertex = e.J + 1
		}
	}

	m := newMatcher(edges, nvertex, maxCardinality)
	m.solve()

	mates := make([]int, nvertex)
	for v := 0; v < nvertex; v++ {
		if m.mate[v] >= 0 {
			mates[v] = m.endpoint[m.mate[v]]
		} else {
			mates[v] = Unmatched
		}
	}
	return mates, nil
}

// Labels. A label of 5 is a breadcrumb left by scanBlossom on an S-blossom.
const (
	free       = 0
	labelS     = 1
	labelT     = 2
	breadcrumb = 4
)

type matcher struct {
	edges          []Edge
	nvertex        int
	maxCardinality bool

	endpoint  []int   // endpoint p -> vertex
	neighbend [][]int // vertex -> remote endpoints of incident edges

	mate      []int // vertex -> remote endpoint of its matched edge, or -1
	label     []int // top-level blossom or vertex -> label
	labelend  []int // endpoint through which the label was reached
	inblossom []int // vertex -> top-level blossom containing it

	blossomparent    []int
	blossomchilds    [][]int
	blossombase      []int
	blossomendps     [][]int
	bestedge         []int
	blossombestedges [][]int
	unusedblossoms   []int

	dualvar   []int64
	allowedge []bool
	queue     []int
}

func newMatcher(edges []Edge, nvertex int, maxCardinality bool) *matcher {
	nedge := len(edges)
	var maxweight int64
	for _, e := range edges {
		if e.Weight > maxweight {
			maxweight = e.Weight
		}
	}

	m := &matcher{
		edges:            edges,
		nvertex:          nvertex,
		maxCardinality:   maxCardinality,
		endpoint:         make([]int, 2*nedge),
		neighbend:        make([][]int, nvertex),
		mate:             make([]int, nvertex),
		label:            make([]int, 2*nvertex),
		labelend:         make([]int, 2*nvertex),
		inblossom:        make([]int, nvertex),
		blossomparent:    make([]int, 2*nvertex),
		blossomchilds:    make([][]int, 2*nvertex),
		blossombase:      make([]int, 2*nvertex),
		blossomendps:     make([][]int, 2*nvertex),
		bestedge:         make([]int, 2*nvertex),
		blossombestedges: make([][]int, 2*nvertex),
		dualvar:          make([]int64, 2*nvertex),
		allowedge:        make([]bool, nedge),
	}
	for p := range m.endpoint {
		if p%2 == 0 {
			m.endpoint[p] = edges[p/2].I
		} else {
			m.endpoint[p] = edges[p/2].J
		}
	}
	for k, e := range edges {
		m.neighbend[e.I] = append(m.neighbend[e.I], 2*k+1)
		m.neighbend[e.J] = append(m.neighbend[e.J], 2*k)
	}
	for v := 0; v < nvertex; v++ {
		m.mate[v] = -1
		m.inblossom[v] = v
		m.blossombase[v] = v
		m.blossombase[nvertex+v] = -1
		m.dualvar[v] = maxweight
		m.unusedblossoms = append(m.unusedblossoms, nvertex+v)
	}
	for b := range m.labelend {
		m.labelend[b] = -1
		m.blossomparent[b] = -1
		m.bestedge[b] = -1
	}
	return m
}

// slack is twice the reduced cost of edge k.
func (m *matcher) slack(k int) int64 {
	e := m.edges[k]
	return m.dualvar[e.I] + m.dualvar[e.J] - 2*e.Weight
}

func (m *matcher) blossomLeaves(b int) []int {
	if b < m.nvertex {
		return []int{b}
	}
	var leaves []int
	for _, t := range m.blossomchilds[b] {
		if t < m.nvertex {
			leaves = append(leaves, t)
		} else {
			leaves = append(leaves, m.blossomLeaves(t)...)
		}
	}
	return leaves
}

// assignLabel labels w's top-level blossom t, reached through endpoint p.
func (m *matcher) assignLabel(w, t, p int) {
	b := m.inblossom[w]
	m.label[w], m.label[b] = t, t
	m.labelend[w], m.labelend[b] = p, p
	m.bestedge[w], m.bestedge[b] = -1, -1
	switch t {
	case labelS:
		m.queue = append(m.queue, m.blossomLeaves(b)...)
	case labelT:
		base := m.blossombase[b]
		m.assignLabel(m.endpoint[m.mate[base]], labelS, m.mate[base]^1)
	}
}

// scanBlossom traces back from v and w towards their tree roots. It returns
// the base of a new blossom, or -1 when the two roots differ and an
// augmenting path exists.
func (m *matcher) scanBlossom(v, w int) int {
	var path []int
	base := -1
	for v != -1 || w != -1 {
		b := m.inblossom[v]
		if m.label[b]&breadcrumb != 0 {
			base = m.blossombase[b]
			break
		}
		path = append(path, b)
		m.label[b] = labelS | breadcrumb
		if m.labelend[b] == -1 {
			v = -1
		} else {
			v = m.endpoint[m.labelend[b]]
			b = m.inblossom[v]
			v = m.endpoint[m.labelend[b]]
		}
		if w != -1 {
			v, w = w, v
		}
	}
	for _, b := range path {
		m.label[b] = labelS
	}
	return base
}

// addBlossom contracts the cycle closed by edge k into a new S-blossom with the given base.
func (m *matcher) addBlossom(base, k int) {
	v, w := m.edges[k].I, m.edges[k].J
	bb := m.inblossom[base]
	bv := m.inblossom[v]
	bw := m.inblossom[w]

	b := m.unusedblossoms[len(m.unusedblossoms)-1]
	m.unusedblossoms = m.unusedblossoms[:len(m.unusedblossoms)-1]
	m.blossombase[b] = base
	m.blossomparent[b] = -1
	m.blossomparent[bb] = b

	var path, endps []int
	for bv != bb {
		m.blossomparent[bv] = b
		path = append(path, bv)
		endps = append(endps, m.labelend[bv])
		v = m.endpoint[m.labelend[bv]]
		bv = m.inblossom[v]
	}
	path = append(path, bb)
	reverseInts(path)
	reverseInts(endps)
	endps = append(endps, 2*k)
	for bw != bb {
		m.blossomparent[bw] = b
		path = append(path, bw)
		endps = append(endps, m.labelend[bw]^1)
		w = m.endpoint[m.labelend[bw]]
		bw = m.inblossom[w]
	}
	m.blossomchilds[b] = path
	m.blossomendps[b] = endps

	m.label[b] = labelS
	m.labelend[b] = m.labelend[bb]
	m.dualvar[b] = 0
	for _, leaf := range m.blossomLeaves(b) {
		if m.label[m.inblossom[leaf]] == labelT {
			// T-vertices inside the new blossom become S-vertices.
			m.queue = append(m.queue, leaf)
		}
		m.inblossom[leaf] = b
	}

	bestedgeto := make([]int, 2*m.nvertex)
	for i := range bestedgeto {
		bestedgeto[i] = -1
	}
	for _, sub := range path {
		var nblists [][]int
		if m.blossombestedges[sub] == nil {
			for _, leaf := range m.blossomLeaves(sub) {
				nb := make([]int, len(m.neighbend[leaf]))
				for i, p := range m.neighbend[leaf] {
					nb[i] = p / 2
				}
				nblists = append(nblists, nb)
			}
		} else {
			nblists = [][]int{m.blossombestedges[sub]}
		}
		for _, nblist := range nblists {
			for _, ek := range nblist {
				j := m.edges[ek].J
				if m.inblossom[j] == b {
					j = m.edges[ek].I
				}
				bj := m.inblossom[j]
				if bj != b && m.label[bj] == labelS &&
					(bestedgeto[bj] == -1 || m.slack(ek) < m.slack(bestedgeto[bj])) {
					bestedgeto[bj] = ek
				}
			}
		}
		m.blossombestedges[sub] = nil
		m.bestedge[sub] = -1
	}

	var best []int
	for _, ek := range bestedgeto {
		if ek != -1 {
			best = append(best, ek)
		}
	}
	m.blossombestedges[b] = best
	m.bestedge[b] = -1
	for _, ek := range best {
		if m.bestedge[b] == -1 || m.slack(ek) < m.slack(m.bestedge[b]) {
			m.bestedge[b] = ek
		}
	}
}

// expandBlossom undoes blossom b, relabelling its children when it is expanded mid-stage.
func (m *matcher) expandBlossom(b int, endstage bool) {
	for _, s := range m.blossomchilds[b] {
		m.blossomparent[s] = -1
		if s < m.nvertex {
			m.inblossom[s] = s
		} else if endstage && m.dualvar[s] == 0 {
			m.expandBlossom(s, endstage)
		} else {
			for _, leaf := range m.blossomLeaves(s) {
				m.inblossom[leaf] = s
			}
		}
	}

	if !endstage && m.label[b] == labelT {
		childs := m.blossomchilds[b]
		endps := m.blossomendps[b]
		entrychild := m.inblossom[m.endpoint[m.labelend[b]^1]]
		j := indexOf(childs, entrychild)
		var jstep, endptrick int
		if j&1 != 0 {
			j -= len(childs)
			jstep = 1
		} else {
			jstep = -1
			endptrick = 1
		}
		p := m.labelend[b]
		for j != 0 {
			m.label[m.endpoint[p^1]] = free
			m.label[m.endpoint[at(endps, j-endptrick)^endptrick^1]] = free
			m.assignLabel(m.endpoint[p^1], labelT, p)
			m.allowedge[at(endps, j-endptrick)/2] = true
			j += jstep
			p = at(endps, j-endptrick) ^ endptrick
			m.allowedge[p/2] = true
			j += jstep
		}
		bv := at(childs, j)
		m.label[m.endpoint[p^1]], m.label[bv] = labelT, labelT
		m.labelend[m.endpoint[p^1]], m.labelend[bv] = p, p
		m.bestedge[bv] = -1
		j += jstep
		for at(childs, j) != entrychild {
			bv = at(childs, j)
			if m.label[bv] == labelS {
				j += jstep
				continue
			}
			for _, leaf := range m.blossomLeaves(bv) {
				if m.label[leaf] != free {
					m.label[leaf] = free
					m.label[m.endpoint[m.mate[m.blossombase[bv]]]] = free
					m.assignLabel(leaf, labelT, m.labelend[leaf])
					break
				}
			}
			j += jstep
		}
	}

	m.label[b], m.labelend[b] = -1, -1
	m.blossomchilds[b], m.blossomendps[b] = nil, nil
	m.blossombase[b] = -1
	m.blossombestedges[b] = nil
	m.bestedge[b] = -1
	m.unusedblossoms = append(m.unusedblossoms, b)
}

// augmentBlossom swaps matched and unmatched edges inside b so that v becomes its base.
func (m *matcher) augmentBlossom(b, v int) {
	t := v
	for m.blossomparent[t] != b {
		t = m.blossomparent[t]
	}
	if t >= m.nvertex {
		m.augmentBlossom(t, v)
	}
	childs := m.blossomchilds[b]
	endps := m.blossomendps[b]
	i := indexOf(childs, t)
	j := i
	var jstep, endptrick int
	if i&1 != 0 {
		j -= len(childs)
		jstep = 1
	} else {
		jstep = -1
		endptrick = 1
	}
	for j != 0 {
		j += jstep
		t = at(childs, j)
		p := at(endps, j-endptrick) ^ endptrick
		if t >= m.nvertex {
			m.augmentBlossom(t, m.endpoint[p])
		}
		j += jstep
		t = at(childs, j)
		if t >= m.nvertex {
			m.augmentBlossom(t, m.endpoint[p^1])
		}
		m.mate[m.endpoint[p]] = p ^ 1
		m.mate[m.endpoint[p^1]] = p
	}
	m.blossomchilds[b] = rotate(childs, i)
	m.blossomendps[b] = rotate(endps, i)
	m.blossombase[b] = m.blossombase[m.blossomchilds[b][0]]
}

// augmentMatching flips the matching along the augmenting path through edge k.
func (m *matcher) augmentMatching(k int) {
	starts := [2][2]int{{m.edges[k].I, 2*k + 1}, {m.edges[k].J, 2 * k}}
	for _, sp := range starts {
		s, p := sp[0], sp[1]
		for {
			bs := m.inblossom[s]
			if bs >= m.nvertex {
				m.augmentBlossom(bs, s)
			}
			m.mate[s] = p
			if m.labelend[bs] == -1 {
				break
			}
			t := m.endpoint[m.labelend[bs]]
			bt := m.inblossom[t]
			s = m.endpoint[m.labelend[bt]]
			j := m.endpoint[m.labelend[bt]^1]
			if bt >= m.nvertex {
				m.augmentBlossom(bt, j)
			}
			m.mate[j] = m.labelend[bt]
			p = m.labelend[bt] ^ 1
		}
	}
}

type deltaKind int

const (
	deltaNone deltaKind = iota
	deltaStop
	deltaEdgeToFree
	deltaEdgeSS
	deltaExpand
)

func (m *matcher) solve() {
	n := m.nvertex
	for stage := 0; stage < n; stage++ {
		for i := range m.label {
			m.label[i] = free
			m.bestedge[i] = -1
		}
		for b := n; b < 2*n; b++ {
			m.blossombestedges[b] = nil
		}
		for k := range m.allowedge {
			m.allowedge[k] = false
		}
		m.queue = m.queue[:0]

		for v := 0; v < n; v++ {
			if m.mate[v] == -1 && m.label[m.inblossom[v]] == free {
				m.assignLabel(v, labelS, -1)
			}
		}

		augmented := false
		for {
			for len(m.queue) > 0 && !augmented {
				v := m.queue[len(m.queue)-1]
				m.queue = m.queue[:len(m.queue)-1]

				for _, p := range m.neighbend[v] {
					k := p / 2
					w := m.endpoint[p]
					if m.inblossom[v] == m.inblossom[w] {
						continue
					}
					var kslack int64
					if !m.allowedge[k] {
						kslack = m.slack(k)
						if kslack <= 0 {
							m.allowedge[k] = true
						}
					}
					switch {
					case m.allowedge[k]:
						switch {
						case m.label[m.inblossom[w]] == free:
							m.assignLabel(w, labelT, p^1)
						case m.label[m.inblossom[w]] == labelS:
							if base := m.scanBlossom(v, w); base >= 0 {
								m.addBlossom(base, k)
							} else {
								m.augmentMatching(k)
								augmented = true
							}
						case m.label[w] == free:
							m.label[w] = labelT
							m.labelend[w] = p ^ 1
						}
					case m.label[m.inblossom[w]] == labelS:
						b := m.inblossom[v]
						if m.bestedge[b] == -1 || kslack < m.slack(m.bestedge[b]) {
							m.bestedge[b] = k
						}
					case m.label[w] == free:
						if m.bestedge[w] == -1 || kslack < m.slack(m.bestedge[w]) {
							m.bestedge[w] = k
						}
					}
					if augmented {
						break
					}
				}
			}
			if augmented {
				break
			}

			kind, delta, deltaedge, deltablossom := m.chooseDelta()

			for v := 0; v < n; v++ {
				switch m.label[m.inblossom[v]] {
				case labelS:
					m.dualvar[v] -= delta
				case labelT:
					m.dualvar[v] += delta
				}
			}
			for b := n; b < 2*n; b++ {
				if m.blossombase[b] >= 0 && m.blossomparent[b] == -1 {
					switch m.label[b] {
					case labelS:
						m.dualvar[b] += delta
					case labelT:
						m.dualvar[b] -= delta
					}
				}
			}

			if kind == deltaStop {
				break
			}
			switch kind {
			case deltaEdgeToFree:
				m.allowedge[deltaedge] = true
				i, j := m.edges[deltaedge].I, m.edges[deltaedge].J
				if m.label[m.inblossom[i]] == free {
					i = j
				}
				m.queue = append(m.queue, i)
			case deltaEdgeSS:
				m.allowedge[deltaedge] = true
				m.queue = append(m.queue, m.edges[deltaedge].I)
			case deltaExpand:
				m.expandBlossom(deltablossom, false)
			}
		}

		if !augmented {
			break
		}

		for b := n; b < 2*n; b++ {
			if m.blossomparent[b] == -1 && m.blossombase[b] >= 0 &&
				m.label[b] == labelS && m.dualvar[b] == 0 {
				m.expandBlossom(b, true)
			}
		}
	}
}

// chooseDelta picks the smallest dual adjustment that makes progress.
func (m *matcher) chooseDelta() (deltaKind, int64, int, int) {
	n := m.nvertex
	kind := deltaNone
	var delta int64
	deltaedge, deltablossom := -1, -1

	if !m.maxCardinality {
		kind = deltaStop
		delta = m.minVertexDual()
	}
	for v := 0; v < n; v++ {
		if m.label[m.inblossom[v]] == free && m.bestedge[v] != -1 {
			d := m.slack(m.bestedge[v])
			if kind == deltaNone || d < delta {
				delta, kind, deltaedge = d, deltaEdgeToFree, m.bestedge[v]
			}
		}
	}
	for b := 0; b < 2*n; b++ {
		if m.blossomparent[b] == -1 && m.label[b] == labelS && m.bestedge[b] != -1 {
			d := m.slack(m.bestedge[b]) / 2
			if kind == deltaNone || d < delta {
				delta, kind, deltaedge = d, deltaEdgeSS, m.bestedge[b]
			}
		}
	}
	for b := n; b < 2*n; b++ {
		if m.blossombase[b] >= 0 && m.blossomparent[b] == -1 && m.label[b] == labelT &&
			(kind == deltaNone || m.dualvar[b] < delta) {
			delta, kind, deltablossom = m.dualvar[b], deltaExpand, b
		}
	}
	if kind == deltaNone {
		// Only reachable with maxCardinality: no further progress is possible.
		kind = deltaStop
		delta = m.minVertexDual()
		if delta < 0 {
			delta = 0
		}
	}
	return kind, delta, deltaedge, deltablossom
}

func (m *matcher) minVertexDual() int64 {
	lowest := m.dualvar[0]
	for v := 1; v < m.nvertex; v++ {
		if m.dualvar[v] < lowest {
			lowest = m.dualvar[v]
		}
	}
	return lowest
}

// at indexes s allowing negative positions counted from the end.
func at(s []int, i int) int {
	if i < 0 {
		i += len(s)
	}
	return s[i]
}

func indexOf(s []int, x int) int {
	for i, v := range s {
		if v == x {
			return i
		}
	}
	panic(fmt.Sprintf("matching: %d not found among blossom children", x))
}

func rotate(s []int, i int) []int {
	out := make([]int, 0, len(s))
	out = append(out, s[i:]...)
	return append(out, s[:i]...)
}

func reverseInts(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
