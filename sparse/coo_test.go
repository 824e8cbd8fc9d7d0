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

package sparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestCOOSetDropsZeros(t *testing.T) {
	m := NewCOO(2, 2)
	m.Set(0, 0, 1)
	m.Set(0, 1, 0)
	m.Set(1, 1, -0.5)
	assert.Equal(t, 2, m.NumEntries())
	require.NoError(t, m.Check())
}

func TestCOOCheck(t *testing.T) {
	m := NewCOO(2, 3)
	m.Set(1, 2, 1)
	require.NoError(t, m.Check())

	outOfBounds := NewCOO(2, 3)
	outOfBounds.Set(2, 0, 1)
	require.Error(t, outOfBounds.Check())

	duplicated := NewCOO(2, 3)
	duplicated.Set(0, 1, 1)
	duplicated.Set(0, 1, 2)
	require.Error(t, duplicated.Check())

	broken := NewCOO(2, 3)
	broken.Set(0, 0, 1)
	broken.Values = append(broken.Values, 7)
	require.Error(t, broken.Check())
}

func TestFromDense(t *testing.T) {
	dense := mat.NewDense(2, 3, []float64{
		0, 0.5, 0,
		1, 0, 0.25,
	})
	m := FromDense(dense)
	require.NoError(t, m.Check())
	assert.Equal(t, 3, m.NumEntries())
	assert.Equal(t, []int32{0, 1, 1}, m.Rows)
	assert.Equal(t, []int32{1, 0, 2}, m.Cols)
	assert.Equal(t, []float32{0.5, 1, 0.25}, m.Values)
}

func TestTensors(t *testing.T) {
	m := NewCOO(2, 2)
	m.Set(0, 1, 0.5)
	m.Set(1, 0, 0.5)
	rows, cols, values := m.Tensors()
	assert.Equal(t, []int{2}, rows.Shape().Dimensions)
	assert.Equal(t, []int{2}, cols.Shape().Dimensions)
	assert.Equal(t, []int{2}, values.Shape().Dimensions)
}
