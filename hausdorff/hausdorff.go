/*
 *	Copyright 2026 The HybridGNet Landmarks Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package hausdorff evaluates predicted landmark contours against ground
// truth with a rasterized, symmetric Hausdorff distance: the worst-case
// boundary mismatch between the two point sets, in pixels.
package hausdorff

import (
	"math"

	"github.com/pkg/errors"

	"github.com/hybridgnet/landmarks/anatomy"
)

// ErrEmptyContour is returned when a point set rasterizes to an empty grid,
// e.g. a degenerate or fully out-of-range prediction. It is surfaced as a
// distinct error instead of a meaningless zero or infinite distance.
var ErrEmptyContour = errors.New("hausdorff: contour rasterized to an empty pixel set")

// pixel is a rasterized landmark position on the evaluation grid.
type pixel struct{ x, y int }

// Rasterize maps landmarks in normalized [0, 1) coordinates onto a size×size
// boolean grid and returns the set pixels. Coordinates are rounded half away
// from zero and then clamped to [0, size-1].
//
// The clamping maps any point outside the grid to its border, so a grossly
// wrong prediction scores as border distance rather than being penalized
// maximally. Landmarks colliding on the same pixel are merged.
func Rasterize(landmarks []float32, size int) []pixel {
	grid := make(map[pixel]bool, len(landmarks)/2)
	set := make([]pixel, 0, len(landmarks)/2)
	for ii := 0; ii+1 < len(landmarks); ii += 2 {
		p := pixel{
			x: clamp(int(math.Round(float64(landmarks[ii])*float64(size))), size),
			y: clamp(int(math.Round(float64(landmarks[ii+1])*float64(size))), size),
		}
		if !grid[p] {
			grid[p] = true
			set = append(set, p)
		}
	}
	return set
}

func clamp(v, size int) int {
	if v < 0 {
		return 0
	}
	if v >= size {
		return size - 1
	}
	return v
}

// Distance returns the symmetric Hausdorff distance between two landmark
// sets given in normalized [0, 1) coordinates, evaluated on a size×size
// pixel grid: max over both directions of the largest nearest-neighbor
// (Euclidean) distance. Distance(a, a) == 0 and Distance(a, b) ==
// Distance(b, a).
//
// It returns ErrEmptyContour if either set rasterizes to no pixels.
func Distance(target, predicted []float32, size int) (float64, error) {
	targetSet := Rasterize(target, size)
	predictedSet := Rasterize(predicted, size)
	if len(targetSet) == 0 || len(predictedSet) == 0 {
		return 0, ErrEmptyContour
	}
	return math.Max(directed(targetSet, predictedSet), directed(predictedSet, targetSet)), nil
}

// directed returns max over a of the distance to the nearest pixel in b.
// The sets are small (at most one pixel per landmark), so the quadratic scan
// is cheaper than building any search structure.
func directed(a, b []pixel) float64 {
	worst := 0.0
	for _, pa := range a {
		nearest := math.Inf(1)
		for _, pb := range b {
			dx := float64(pa.x - pb.x)
			dy := float64(pa.y - pb.y)
			if d := dx*dx + dy*dy; d < nearest {
				nearest = d
			}
		}
		if nearest > worst {
			worst = nearest
		}
	}
	return math.Sqrt(worst)
}

// Regions splits flat [N*2] landmark vectors by the fixed per-organ index
// ranges of the anatomical specification and returns one Hausdorff distance
// per organ, in specification order (2 values for lungs, 3 for
// lungs+heart). The region boundaries are a property of the anatomy, not a
// free parameter.
func Regions(target, predicted []float32, size int, spec anatomy.Spec) ([]float64, error) {
	wantLen := 2 * spec.NumNodes()
	if len(target) != wantLen || len(predicted) != wantLen {
		return nil, errors.Errorf("hausdorff: landmark vectors must have %d values, got target=%d, predicted=%d",
			wantLen, len(target), len(predicted))
	}
	distances := make([]float64, 0, spec.NumOrgans())
	for _, region := range spec.Regions() {
		dist, err := Distance(target[2*region.Start:2*region.End], predicted[2*region.Start:2*region.End], size)
		if err != nil {
			return nil, errors.WithMessagef(err, "region %q", region.Name)
		}
		distances = append(distances, dist)
	}
	return distances, nil
}

// Mean averages the per-region distances (2-way for lungs, 3-way for
// lungs+heart).
func Mean(distances []float64) float64 {
	total := 0.0
	for _, d := range distances {
		total += d
	}
	return total / float64(len(distances))
}
