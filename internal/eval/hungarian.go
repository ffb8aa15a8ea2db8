package eval

import "math"

// solveAssignment computes the minimum-cost perfect matching of a square
// cost matrix using the Kuhn-Munkres algorithm with potentials, O(n^3).
// The return value maps row index to assigned column index.
//
// Callers pad rectangular matrices to square with a constant cost before
// calling; constant padding cannot change the optimal pairing among real
// cells.
func solveAssignment(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}

	// 1-based arrays per the classical formulation. p[j] is the row matched
	// to column j, 0 when free.
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1)
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		// Augment along the found path.
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	assign := make([]int, n)
	for j := 1; j <= n; j++ {
		if p[j] > 0 {
			assign[p[j]-1] = j - 1
		}
	}
	return assign
}

// padSquare extends an n×m score matrix to k×k (k = max(n,m)) with zero
// scores so padded pairings always fall below any positive threshold.
func padSquare(scores [][]float64, n, m int) [][]float64 {
	k := n
	if m > k {
		k = m
	}
	out := make([][]float64, k)
	for i := range out {
		out[i] = make([]float64, k)
		if i < n {
			copy(out[i], scores[i])
		}
	}
	return out
}
