package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveAssignment_PicksGlobalOptimum(t *testing.T) {
	// Greedy on row 0 would take column 0 (cost 1) and force total cost 9;
	// the optimal assignment is 0->1, 1->0, 2->2 with total cost 5.
	cost := [][]float64{
		{1, 2, 6},
		{1, 7, 6},
		{4, 5, 2},
	}
	assign := solveAssignment(cost)
	require.Len(t, assign, 3)
	assert.Equal(t, []int{1, 0, 2}, assign)
}

func TestSolveAssignment_Identity(t *testing.T) {
	cost := [][]float64{
		{0, 1},
		{1, 0},
	}
	assert.Equal(t, []int{0, 1}, solveAssignment(cost))
}

func TestSolveAssignment_Empty(t *testing.T) {
	assert.Nil(t, solveAssignment(nil))
}

func TestPadSquare(t *testing.T) {
	scores := [][]float64{{0.9, 0.1, 0.2}}
	out := padSquare(scores, 1, 3)
	require.Len(t, out, 3)
	assert.Equal(t, []float64{0.9, 0.1, 0.2}, out[0])
	assert.Equal(t, []float64{0, 0, 0}, out[1])
	assert.Equal(t, []float64{0, 0, 0}, out[2])
}
