package kbody

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSolveBaselineFullRank(t *testing.T) {
	//two real types plus a zero ghost column; energies are an exact
	//linear function of the composition, so the fit must recover it
	a, b := 1.5, 2.5
	counts := [][]float64{
		{2, 1, 0},
		{1, 2, 0},
		{3, 1, 0},
		{1, 3, 0},
	}
	occurs := mat.NewDense(4, 3, nil)
	energies := make([]float64, 4)
	for i, row := range counts {
		occurs.SetRow(i, row)
		energies[i] = -(a*row[0] + b*row[1])
	}
	x, err := SolveBaseline(occurs, energies, 2)
	require.NoError(t, err)
	require.Len(t, x, 3)
	assert.InDelta(t, a, x[0], 1e-9)
	assert.InDelta(t, b, x[1], 1e-9)
	assert.InDelta(t, 0, x[2], 1e-9)
}

func TestSolveBaselineRankOne(t *testing.T) {
	//every structure has the same stoichiometry: the per-atom mean is
	//shared equally among the real types
	occurs := mat.NewDense(3, 3, []float64{
		2, 1, 0,
		2, 1, 0,
		2, 1, 0,
	})
	energies := []float64{-9, -9, -9}
	x, err := SolveBaseline(occurs, energies, 2)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, x[0], 1e-12)
	assert.InDelta(t, 3.0, x[1], 1e-12)
	assert.Zero(t, x[2])
}

func TestSolveBaselineDegenerate(t *testing.T) {
	//rank 2 with 3 real types: neither solvable nor uniform
	occurs := mat.NewDense(3, 3, []float64{
		1, 1, 0,
		2, 2, 0,
		1, 1, 1,
	})
	energies := []float64{-1, -2, -3}
	_, err := SolveBaseline(occurs, energies, 3)
	require.Error(t, err)
	_, ok := err.(BaselineError)
	assert.True(t, ok)
}

func TestSolveBaselineBadShape(t *testing.T) {
	occurs := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	_, err := SolveBaseline(occurs, []float64{1}, 2)
	require.Error(t, err)
	_, ok := err.(ShapeError)
	assert.True(t, ok)
}
