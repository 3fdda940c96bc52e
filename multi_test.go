package kbody

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func water(dOH1, dOH2 float64) *Structure {
	return &Structure{
		Species: []string{"H", "H", "O"},
		Coords: mat.NewDense(3, 3, []float64{
			dOH1, 0, 0,
			-dOH2 * 0.3, dOH2 * 0.95, 0,
			0, 0, 0,
		}),
		Energy: -76.4,
	}
}

func TestMultiAcceptSpecies(t *testing.T) {
	M, err := NewMulti([]string{"C", "H"}, map[string]int{"C": 2, "H": 6}, nil)
	require.NoError(t, err)
	assert.True(t, M.AcceptSpecies([]string{"C", "H", "H", "H", "H"}))
	assert.True(t, M.AcceptSpecies([]string{"C", "C", "H", "H", "H", "H", "H", "H"}))
	//over the cap
	assert.False(t, M.AcceptSpecies([]string{"C", "C", "C", "H", "H"}))
	//unknown element
	assert.False(t, M.AcceptSpecies([]string{"C", "N", "H"}))
}

func TestMultiTypesOrder(t *testing.T) {
	//the ghost goes last no matter how it sorts as a string
	M, err := NewMulti([]string{"Zn", "C"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "Zn", Ghost}, M.AtomTypes())
	assert.Equal(t, 3, M.NumAtomTypes())
	assert.Equal(t, 2, M.NumRealAtomTypes())
	assert.Equal(t, 1, M.NumGhosts())
}

func TestMultiTransform(t *testing.T) {
	M, err := NewMulti([]string{"H", "O"}, nil, nil)
	require.NoError(t, err)
	s := water(0.96, 0.97)
	sample, err := M.Transform(s)
	require.NoError(t, err)
	assert.Equal(t, s.Energy, sample.Energy)
	//types are [H O X]
	assert.Equal(t, []float64{2, 1, 0}, sample.Occurs)
	rows, _ := sample.Features.Dims()
	total := 0
	for _, d := range sample.SplitDims {
		total += d
	}
	assert.Equal(t, total, rows)
	assert.Len(t, sample.Weights, rows)

	//unknown composition
	_, err = M.Transform(&Structure{Species: []string{"N", "N"},
		Coords: mat.NewDense(2, 3, []float64{0, 0, 0, 1.1, 0, 0})})
	require.Error(t, err)
	_, ok := err.(CompositionError)
	assert.True(t, ok)
}

func TestMultiTransformerCache(t *testing.T) {
	M, err := NewMulti([]string{"H", "O"}, nil, nil)
	require.NoError(t, err)
	a, err := M.transformerFor([]string{"H", "H", "O"})
	require.NoError(t, err)
	b, err := M.transformerFor([]string{"H", "H", "O"})
	require.NoError(t, err)
	assert.Same(t, a, b)
	c, err := M.transformerFor([]string{"H", "O"})
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	//every cached transformer shares the global term ordering
	assert.Equal(t, M.Terms(), a.Terms())
	assert.Equal(t, M.Terms(), c.Terms())
}

func TestTransformTrajectory(t *testing.T) {
	M, err := NewMulti([]string{"H", "O"}, nil, nil)
	require.NoError(t, err)
	traj := []*Structure{
		water(0.95, 0.95), water(0.96, 0.97), water(0.99, 0.93), water(1.01, 1.02),
	}
	samples, err := M.TransformTrajectory(traj)
	require.NoError(t, err)
	require.Len(t, samples, len(traj))
	//order preserved, and identical to the serial path
	for i, s := range traj {
		serial, err := M.Transform(s)
		require.NoError(t, err)
		assert.True(t, mat.Equal(serial.Features, samples[i].Features), "frame %d", i)
		assert.Equal(t, serial.Energy, samples[i].Energy)
	}

	//frames of different formulas are rejected
	bad := append(traj[:2:2], &Structure{Species: []string{"O", "H", "H"},
		Coords: water(0.95, 0.95).Coords})
	_, err = M.TransformTrajectory(bad)
	assert.Error(t, err)

	_, err = M.TransformTrajectory(nil)
	assert.Error(t, err)
}

func TestComputeAtomicEnergies(t *testing.T) {
	M, err := NewMulti([]string{"H"}, nil, nil)
	require.NoError(t, err)
	//H2 with the default k=3 settings: terms HHH (infeasible) and HHX
	//(one selection). The padding row contributes nothing.
	species := []string{"H", "H"}
	clf, err := M.transformerFor(species)
	require.NoError(t, err)
	contribs := make([]float64, clf.realDim)
	for i := range contribs {
		contribs[i] = 5.0 //only rows with selections behind them count
	}
	oneBody := map[string]float64{"H": 1.0}
	atomic, err := M.ComputeAtomicEnergies(species, contribs, oneBody)
	require.NoError(t, err)
	require.Len(t, atomic, 2)
	//one HHX selection, k=2 real atoms, 5.0 split in half
	assert.InDelta(t, 1.0+2.5, atomic[0], 1e-12)
	assert.InDelta(t, 1.0+2.5, atomic[1], 1e-12)

	//the shares always add back up: sum(atomic) = sum(1-body) + sum of
	//the contributions of rows that have selections behind them
	_, err = M.ComputeAtomicEnergies(species, []float64{1}, oneBody)
	assert.Error(t, err)
}

func TestFixedLenShape(t *testing.T) {
	F, err := NewFixedLen(map[string]int{"H": 4, "C": 1}, nil)
	require.NoError(t, err)
	rows, cols := F.Shape()
	assert.Equal(t, 3, cols)
	//C(1+4+1, 3) by the Vandermonde identity
	assert.Equal(t, comb(6, 3), rows)
	assert.Equal(t, 6, F.MaxNumAtoms())

	//every accepted molecule yields that same shape
	methaneS := &Structure{
		Species: []string{"C", "H", "H", "H", "H"},
		Coords:  methane(),
		Energy:  -40.5,
	}
	ch2 := &Structure{
		Species: []string{"C", "H", "H"},
		Coords: mat.NewDense(3, 3, []float64{
			0, 0, 0,
			1.09, 0, 0,
			-0.5, 0.95, 0,
		}),
		Energy: -39.1,
	}
	for _, s := range []*Structure{methaneS, ch2} {
		sample, err := F.Transform(s)
		require.NoError(t, err)
		r, c := sample.Features.Dims()
		assert.Equal(t, rows, r)
		assert.Equal(t, cols, c)
	}

	//caps are mandatory here
	_, err = NewFixedLen(nil, nil)
	assert.Error(t, err)
}
