/*
 * plot.go, part of kbody.
 *
 *
 * Copyright 2024 Raul Mera rauldotmeraatusachdotcl
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 */

package kbody

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// TermFeatures collects, across samples, every feature value of the term
// at termIndex, skipping the zero-weight padding rows. Useful to inspect
// the value distribution a model will actually see for that interaction.
func TermFeatures(samples []*Sample, termIndex int) []float64 {
	var vals []float64
	for _, s := range samples {
		istart := 0
		for i := 0; i < termIndex; i++ {
			istart += s.SplitDims[i]
		}
		istop := istart + s.SplitDims[termIndex]
		_, cols := s.Features.Dims()
		for r := istart; r < istop; r++ {
			if s.Weights[r] == 0 {
				continue
			}
			for c := 0; c < cols; c++ {
				vals = append(vals, s.Features.At(r, c))
			}
		}
	}
	return vals
}

// TermSummary returns the mean and standard deviation of a term's
// feature values, as from TermFeatures.
func TermSummary(vals []float64) (mean, stdev float64) {
	mean, variance := stat.MeanVariance(vals, nil)
	return mean, math.Sqrt(variance)
}

// SaveFeatureHistogram plots a histogram of the given feature values and
// saves it to filename (the image format follows the extension; .png and
// .pdf both work).
func SaveFeatureHistogram(vals []float64, title string, bins int, filename string) error {
	if len(vals) == 0 {
		return CError{msg: "kbody: nothing to plot"}
	}
	if bins < 1 {
		bins = 50
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "feature value"
	p.Y.Label.Text = "count"
	h, err := plotter.NewHist(plotter.Values(vals), bins)
	if err != nil {
		return errDecorate(err, "SaveFeatureHistogram")
	}
	p.Add(h)
	if err := p.Save(6*vg.Inch, 4*vg.Inch, filename); err != nil {
		return errDecorate(err, "SaveFeatureHistogram "+filename)
	}
	return nil
}
