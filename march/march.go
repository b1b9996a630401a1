// Package march builds the dimension-generic marching-cubes/squares
// tables described in spec.md §4.4, derived from the _verts/_edges/
// _neighbors formulas in
// original_source/ao/include/ao/render/brep/marching.hpp. Tables are
// built once per dimension and shared read-only (spec.md §5).
package march

import "math/bits"

// Edge is a cube edge as a pair of corner indices, A < B.
type Edge struct{ A, B int }

// Table is a precomputed marching table for dimension N: VertsToPatches
// maps a corner-inside bitmask to its patches, each patch a list of
// directed edge indices; VertsToEdge maps an ordered corner pair to a
// directed edge index in [0, 2*Edges); EdgeToPatch maps a (mask, directed
// edge index) pair to the patch that owns that crossing.
type Table struct {
	N     int
	Verts int // 2^N
	Edges int // N * 2^(N-1): number of undirected cube edges

	EdgeList    []Edge // undirected edges, index 0..Edges-1
	VertsToEdge [][]int
	// VertsToPatches[mask] is up to 2^(N-1) patches; each patch is the
	// list of directed edge indices crossing that component's boundary.
	VertsToPatches [][][]int
	EdgeToPatch    [][]int
}

// Verts returns 2^n, the corner count of an n-cube.
func Verts(n int) int { return 1 << n }

// Edges returns the undirected-edge count of an n-cube: pairs of corners
// at Hamming distance 1, which is n*2^(n-1) (and matches the recursive
// edges(n) = edges(n-1)*2 + verts(n-1) used by the original source).
func Edges(n int) int {
	if n == 0 {
		return 0
	}
	return n * Verts(n-1)
}

// Neighbors returns 3^n, the count of cells (including the cell itself)
// touching an n-cube's closure — face, edge, and corner neighbors.
func Neighbors(n int) int {
	p := 1
	for i := 0; i < n; i++ {
		p *= 3
	}
	return p
}

// Build constructs the marching table for dimension n (2 or 3).
func Build(n int) *Table {
	verts := Verts(n)
	var edgeList []Edge
	for a := 0; a < verts; a++ {
		for b := a + 1; b < verts; b++ {
			if bits.OnesCount(uint(a^b)) == 1 {
				edgeList = append(edgeList, Edge{A: a, B: b})
			}
		}
	}
	numEdges := len(edgeList)

	vte := make([][]int, verts)
	for i := range vte {
		vte[i] = make([]int, verts)
		for j := range vte[i] {
			vte[i][j] = -1
		}
	}
	neighbor := make([][]int, verts) // cube-edge adjacency, undirected
	for i := range neighbor {
		neighbor[i] = nil
	}
	for idx, e := range edgeList {
		vte[e.A][e.B] = idx
		vte[e.B][e.A] = idx + numEdges
		neighbor[e.A] = append(neighbor[e.A], e.B)
		neighbor[e.B] = append(neighbor[e.B], e.A)
	}

	numMasks := 1 << verts
	patches := make([][][]int, numMasks)
	edgeToPatch := make([][]int, numMasks)

	for mask := 0; mask < numMasks; mask++ {
		inside := func(c int) bool { return mask&(1<<c) != 0 }

		// Connected components of inside corners, under cube-edge
		// adjacency (spec.md §4.4).
		component := make([]int, verts)
		for i := range component {
			component[i] = -1
		}
		numComponents := 0
		for c := 0; c < verts; c++ {
			if !inside(c) || component[c] != -1 {
				continue
			}
			id := numComponents
			numComponents++
			stack := []int{c}
			component[c] = id
			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for _, nb := range neighbor[cur] {
					if inside(nb) && component[nb] == -1 {
						component[nb] = id
						stack = append(stack, nb)
					}
				}
			}
		}

		byComponent := make([][]int, numComponents)
		for _, e := range edgeList {
			ai, bi := inside(e.A), inside(e.B)
			if ai == bi {
				continue // not a crossing edge
			}
			var insideCorner, directed int
			if ai {
				insideCorner = e.A
				directed = vte[e.A][e.B]
			} else {
				insideCorner = e.B
				directed = vte[e.B][e.A]
			}
			id := component[insideCorner]
			byComponent[id] = append(byComponent[id], directed)
		}

		ep := make([]int, 2*numEdges)
		for i := range ep {
			ep[i] = -1
		}
		var ps [][]int
		for _, edges := range byComponent {
			if len(edges) == 0 {
				continue
			}
			patchIdx := len(ps)
			ps = append(ps, edges)
			for _, d := range edges {
				ep[d] = patchIdx
			}
		}
		patches[mask] = ps
		edgeToPatch[mask] = ep
	}

	return &Table{
		N:              n,
		Verts:          verts,
		Edges:          numEdges,
		EdgeList:       edgeList,
		VertsToEdge:    vte,
		VertsToPatches: patches,
		EdgeToPatch:    edgeToPatch,
	}
}
