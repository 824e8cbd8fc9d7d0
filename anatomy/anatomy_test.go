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

package anatomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecs(t *testing.T) {
	lungs := Lungs()
	require.NoError(t, lungs.Check())
	assert.Equal(t, 2, lungs.NumOrgans())
	assert.Equal(t, 94, lungs.NumNodes())
	assert.Equal(t, 47, lungs.NumCoarseNodes())

	full := LungsHeart()
	require.NoError(t, full.Check())
	assert.Equal(t, 3, full.NumOrgans())
	assert.Equal(t, 120, full.NumNodes())
	assert.Equal(t, 60, full.NumCoarseNodes())
}

func TestRegionsPartitionLandmarks(t *testing.T) {
	spec := LungsHeart()
	regions := spec.Regions()
	require.Len(t, regions, 3)
	assert.Equal(t, Region{Name: "right lung", Start: 0, End: 44}, regions[0])
	assert.Equal(t, Region{Name: "left lung", Start: 44, End: 94}, regions[1])
	assert.Equal(t, Region{Name: "heart", Start: 94, End: 120}, regions[2])

	// Contiguous cover of [0, NumNodes).
	at := 0
	for _, region := range regions {
		assert.Equal(t, at, region.Start)
		assert.Greater(t, region.End, region.Start)
		at = region.End
	}
	assert.Equal(t, spec.NumNodes(), at)
}

func TestCheckRejectsOddContours(t *testing.T) {
	require.Error(t, Spec{}.Check())
	require.Error(t, Spec{organs: []Organ{{Name: "odd", NumNodes: 5}}}.Check())
	require.Error(t, Spec{organs: []Organ{{Name: "tiny", NumNodes: 2}}}.Check())
}
