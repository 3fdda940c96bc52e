package xyz

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/rmera/kbody"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const twoFrames = `3
-76.40
O   0.00000000   0.00000000   0.11779000
H   0.00000000   0.75545000  -0.47116000
H   0.00000000  -0.75545000  -0.47116000
3
i = 1, E = -76.38
O   0.00000000   0.00000000   0.12000000
H   0.00000000   0.76000000  -0.47000000
H   0.00000000  -0.76000000  -0.47000000
`

func TestRead(t *testing.T) {
	structures, err := Read(strings.NewReader(twoFrames))
	require.NoError(t, err)
	require.Len(t, structures, 2)

	s := structures[0]
	assert.Equal(t, []string{"O", "H", "H"}, s.Species)
	assert.InDelta(t, -76.40, s.Energy, 1e-12)
	assert.InDelta(t, 0.11779, s.Coords.At(0, 2), 1e-12)
	assert.InDelta(t, -0.75545, s.Coords.At(2, 1), 1e-12)
	assert.Nil(t, s.Forces)

	//key=value comment lines work too; the first parseable value wins
	//("1," doesn't parse, "-76.38" does)
	assert.InDelta(t, -76.38, structures[1].Energy, 1e-12)
}

func TestReadErrors(t *testing.T) {
	_, err := Read(strings.NewReader("nonsense\n"))
	assert.Error(t, err)

	_, err = Read(strings.NewReader("2\ncomment\nH 0 0 0\n"))
	assert.Error(t, err)

	_, err = Read(strings.NewReader("1\ncomment\nH 0 zero 0\n"))
	assert.Error(t, err)

	//frames can't mix atoms with and without forces
	mixed := "2\n-1.0\nH 0 0 0 0.1 0 0\nH 0.7 0 0\n"
	_, err = Read(strings.NewReader(mixed))
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	structures := []*kbody.Structure{
		{
			Species: []string{"H", "H"},
			Coords:  mat.NewDense(2, 3, []float64{0, 0, 0, 0.74, 0, 0}),
			Energy:  -1.17,
			Forces:  mat.NewDense(2, 3, []float64{0.1, -0.2, 0, -0.1, 0.2, 0}),
		},
		{
			Species: []string{"H", "H"},
			Coords:  mat.NewDense(2, 3, []float64{0, 0, 0, 0.76, 0, 0}),
			Energy:  -1.15,
			Forces:  mat.NewDense(2, 3, []float64{0.05, 0, 0, -0.05, 0, 0}),
		},
	}
	name := filepath.Join(t.TempDir(), "h2.xyz")
	require.NoError(t, WriteFile(name, structures))

	back, err := ReadFile(name)
	require.NoError(t, err)
	require.Len(t, back, 2)
	for i, s := range structures {
		assert.Equal(t, s.Species, back[i].Species)
		assert.InDelta(t, s.Energy, back[i].Energy, 1e-7)
		assert.True(t, mat.EqualApprox(s.Coords, back[i].Coords, 1e-7))
		require.NotNil(t, back[i].Forces)
		assert.True(t, mat.EqualApprox(s.Forces, back[i].Forces, 1e-7))
	}
}
