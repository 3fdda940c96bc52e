package kbody

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTermFeaturesAndHistogram(t *testing.T) {
	M, err := NewMulti([]string{"H", "O"}, nil, nil)
	require.NoError(t, err)
	traj := []*Structure{water(0.95, 0.95), water(0.96, 0.97), water(0.99, 0.93)}
	samples, err := M.TransformTrajectory(traj)
	require.NoError(t, err)

	//pick a term every water frame realizes
	terms := M.Terms()
	idx := -1
	for i, term := range terms {
		if term == "HHO" {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	vals := TermFeatures(samples, idx)
	assert.NotEmpty(t, vals)
	for _, v := range vals {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	mean, stdev := TermSummary(vals)
	assert.Greater(t, mean, 0.0)
	assert.GreaterOrEqual(t, stdev, 0.0)

	name := filepath.Join(t.TempDir(), "hho.png")
	require.NoError(t, SaveFeatureHistogram(vals, "H-H-O features", 20, name))
	info, err := os.Stat(name)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.Error(t, SaveFeatureHistogram(nil, "empty", 10, name))
}
