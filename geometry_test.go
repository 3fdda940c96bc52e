package kbody

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestDistanceMatrix(t *testing.T) {
	coords := mat.NewDense(3, 3, []float64{
		0, 0, 0,
		3, 0, 0,
		0, 4, 0,
	})
	d := distanceMatrix(coords)
	assert.InDelta(t, 3.0, d[0*3+1], 1e-12)
	assert.InDelta(t, 4.0, d[0*3+2], 1e-12)
	assert.InDelta(t, 5.0, d[1*3+2], 1e-12)
	//symmetric, zero diagonal
	for i := 0; i < 3; i++ {
		assert.Zero(t, d[i*3+i])
		for j := 0; j < 3; j++ {
			assert.Equal(t, d[i*3+j], d[j*3+i])
		}
	}
}

func TestDistanceMatrixMIC(t *testing.T) {
	cell := mat.NewDense(3, 3, []float64{
		10, 0, 0,
		0, 10, 0,
		0, 0, 10,
	})
	coords := mat.NewDense(2, 3, []float64{
		0.5, 0, 0,
		9.5, 0, 0,
	})
	d, err := distanceMatrixMIC(coords, cell)
	require.NoError(t, err)
	//across the boundary the images are 1 apart, not 9
	assert.InDelta(t, 1.0, d[0*2+1], 1e-12)

	_, err = distanceMatrixMIC(coords, mat.NewDense(2, 2, nil))
	assert.Error(t, err)
}

func TestDeltaMatrix(t *testing.T) {
	coords := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		4, 6, 8,
	})
	delta := deltaMatrix(coords)
	//both (i,j) and (j,i) hold coords[j]-coords[i] for i<j
	want := []float64{3, 4, 5}
	for ax := 0; ax < 3; ax++ {
		assert.Equal(t, want[ax], delta[(0*2+1)*3+ax])
		assert.Equal(t, want[ax], delta[(1*2+0)*3+ax])
	}
}

func TestGhostify(t *testing.T) {
	coords := mat.NewDense(3, 3, []float64{
		0, 0, 0,
		1, 0, 0,
		0, 0, 0, //the ghost
	})
	dists := distanceMatrix(coords)
	delta := deltaMatrix(coords)
	ghostify(dists, delta, 3, 1)
	//real-real entries survive
	assert.InDelta(t, 1.0, dists[0*3+1], 1e-12)
	//anything touching the ghost is Inf / 0
	for _, idx := range []int{0*3 + 2, 1*3 + 2, 2*3 + 0, 2*3 + 1, 2*3 + 2} {
		assert.True(t, math.IsInf(dists[idx], 1))
		for ax := 0; ax < 3; ax++ {
			assert.Zero(t, delta[idx*3+ax])
		}
	}
}

func TestPadCoords(t *testing.T) {
	coords := mat.NewDense(2, 3, []float64{1, 1, 1, 2, 2, 2})
	padded := padCoords(coords, 2)
	r, c := padded.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 1.0, padded.At(0, 0))
	assert.Zero(t, padded.At(3, 2))
	//no ghosts: same matrix back, no copy
	assert.Same(t, coords, padCoords(coords, 0))
}

func TestNormalize(t *testing.T) {
	dists := []float64{1.0, 2.0, math.Inf(1)}
	lengths := []float64{1.0, 1.0, 1.0}
	out := normalize(dists, lengths, 1)
	assert.InDelta(t, math.Exp(-1), out[0], 1e-12)
	assert.InDelta(t, math.Exp(-2), out[1], 1e-12)
	//ghost distances come out exactly 0, not a denormal
	assert.Zero(t, out[2])

	//order 2 squares the ratio
	out = normalize([]float64{2.0}, []float64{1.0}, 2)
	assert.InDelta(t, math.Exp(-4), out[0], 1e-12)

	//order 0 skips the reference lengths
	out = normalize([]float64{3.0}, []float64{100.0}, 0)
	assert.InDelta(t, math.Exp(-3), out[0], 1e-12)
}

func TestRefLengths(t *testing.T) {
	lengths, err := refLengths([]string{"H", "O"}, 1.0)
	require.NoError(t, err)
	rH, rO := 0.32, 0.63
	assert.InDelta(t, rH+rH, lengths[0], 1e-12)
	assert.InDelta(t, rH+rO, lengths[1], 1e-12)
	assert.InDelta(t, rH+rO, lengths[2], 1e-12)
	assert.InDelta(t, rO+rO, lengths[3], 1e-12)

	_, err = refLengths([]string{"H", "Qq"}, 1.0)
	assert.Error(t, err)
}
