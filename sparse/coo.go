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

// Package sparse implements the coordinate-format (COO) sparse matrices that
// describe the multi-resolution landmark graph, and their application to
// batched node features inside a computation graph.
//
// The matrices are purely structural: they are built once from the anatomical
// topology, never densified, and carry no learnable parameters.
package sparse

import (
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// COO is a sparse matrix in coordinate format: parallel slices of row
// indices, column indices and values, plus the explicit dense shape.
//
// Entries are kept in the order they were added; Apply does not require them
// sorted or coalesced, but duplicated coordinates are rejected by Check since
// the anatomical builders never produce them.
type COO struct {
	NumRows, NumCols int

	Rows, Cols []int32
	Values     []float32
}

// NewCOO returns an empty matrix of the given shape.
func NewCOO(numRows, numCols int) *COO {
	return &COO{NumRows: numRows, NumCols: numCols}
}

// Set adds a non-zero entry. Zero values are dropped, keeping the sparsity
// pattern exact.
func (m *COO) Set(row, col int, value float32) {
	if value == 0 {
		return
	}
	m.Rows = append(m.Rows, int32(row))
	m.Cols = append(m.Cols, int32(col))
	m.Values = append(m.Values, value)
}

// NumEntries returns the number of stored non-zeros.
func (m *COO) NumEntries() int { return len(m.Values) }

// Check validates the internal consistency of the matrix: matching slice
// lengths, indices within shape and no duplicated coordinates.
func (m *COO) Check() error {
	if m.NumRows <= 0 || m.NumCols <= 0 {
		return errors.Errorf("sparse: invalid shape [%d, %d]", m.NumRows, m.NumCols)
	}
	if len(m.Rows) != len(m.Cols) || len(m.Rows) != len(m.Values) {
		return errors.Errorf("sparse: inconsistent COO storage: %d rows, %d cols, %d values",
			len(m.Rows), len(m.Cols), len(m.Values))
	}
	seen := make(map[[2]int32]bool, len(m.Rows))
	for ii, row := range m.Rows {
		col := m.Cols[ii]
		if row < 0 || int(row) >= m.NumRows || col < 0 || int(col) >= m.NumCols {
			return errors.Errorf("sparse: entry #%d at (%d, %d) out of bounds for shape [%d, %d]",
				ii, row, col, m.NumRows, m.NumCols)
		}
		key := [2]int32{row, col}
		if seen[key] {
			return errors.Errorf("sparse: duplicated entry at (%d, %d)", row, col)
		}
		seen[key] = true
	}
	return nil
}

// FromDense extracts the non-zero entries of a dense matrix into COO form.
// The anatomical builders assemble their operators densely (gonum) for
// clarity and convert here, so the runtime representation stays sparse.
func FromDense(dense mat.Matrix) *COO {
	numRows, numCols := dense.Dims()
	m := NewCOO(numRows, numCols)
	for row := 0; row < numRows; row++ {
		for col := 0; col < numCols; col++ {
			if v := dense.At(row, col); v != 0 {
				m.Set(row, col, float32(v))
			}
		}
	}
	return m
}

// Tensors is the single conversion point between the host COO representation
// and the tensor runtime: it returns the row indices, column indices and
// values as tensors, ready to be uploaded as graph constants.
// The dense shape is carried separately by the COO itself.
func (m *COO) Tensors() (rows, cols, values *tensors.Tensor) {
	rows = tensors.FromFlatDataAndDimensions(m.Rows, len(m.Rows))
	cols = tensors.FromFlatDataAndDimensions(m.Cols, len(m.Cols))
	values = tensors.FromFlatDataAndDimensions(m.Values, len(m.Values))
	return
}
