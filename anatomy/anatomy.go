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

// Package anatomy describes the landmark graph of the chest X-ray contours:
// which organs are annotated, how many landmarks each contour has, and the
// sparse operators (adjacency, pooling, up-sampling) connecting the two
// graph resolutions used by the model.
package anatomy

import "github.com/pkg/errors"

// Landmark counts per organ contour. These are properties of the annotation
// protocol: the index ranges below must match the matrices built from them,
// and the evaluation metric splits the flat landmark vector with them.
const (
	RightLungLandmarks = 44
	LeftLungLandmarks  = 50
	HeartLandmarks     = 26
)

// Organ is one annotated closed contour.
type Organ struct {
	Name string

	// NumNodes is the number of landmarks on the contour at full resolution.
	// It must be even: the coarse resolution merges consecutive pairs.
	NumNodes int
}

// Region is the index range [Start, End) of an organ inside the flat,
// full-resolution landmark array.
type Region struct {
	Name       string
	Start, End int
}

// Spec selects which organs are modeled. The landmark order is fixed:
// right lung, left lung, then (optionally) heart.
type Spec struct {
	organs []Organ
}

// Lungs returns the 2-organ specification (94 landmarks).
func Lungs() Spec {
	return Spec{organs: []Organ{
		{Name: "right lung", NumNodes: RightLungLandmarks},
		{Name: "left lung", NumNodes: LeftLungLandmarks},
	}}
}

// LungsHeart returns the 3-organ specification (120 landmarks).
func LungsHeart() Spec {
	spec := Lungs()
	spec.organs = append(spec.organs, Organ{Name: "heart", NumNodes: HeartLandmarks})
	return spec
}

// Organs returns the organs in landmark order.
func (s Spec) Organs() []Organ { return s.organs }

// NumOrgans returns how many contours the specification carries.
func (s Spec) NumOrgans() int { return len(s.organs) }

// NumNodes returns the total number of landmarks at full resolution.
func (s Spec) NumNodes() int {
	total := 0
	for _, organ := range s.organs {
		total += organ.NumNodes
	}
	return total
}

// NumCoarseNodes returns the total number of nodes after one level of
// pair-merging pooling.
func (s Spec) NumCoarseNodes() int {
	total := 0
	for _, organ := range s.organs {
		total += organ.NumNodes / 2
	}
	return total
}

// Regions returns the fine-resolution index range of each organ.
func (s Spec) Regions() []Region {
	regions := make([]Region, 0, len(s.organs))
	start := 0
	for _, organ := range s.organs {
		regions = append(regions, Region{Name: organ.Name, Start: start, End: start + organ.NumNodes})
		start += organ.NumNodes
	}
	return regions
}

// Check validates the specification before matrices are built from it.
func (s Spec) Check() error {
	if len(s.organs) == 0 {
		return errors.New("anatomy: specification has no organs")
	}
	for _, organ := range s.organs {
		if organ.NumNodes < 4 || organ.NumNodes%2 != 0 {
			return errors.Errorf("anatomy: organ %q has %d landmarks, want an even count >= 4",
				organ.Name, organ.NumNodes)
		}
	}
	return nil
}
