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
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/types/shapes"

	"github.com/gomlx/exceptions"
)

// On uploads the matrix into the given computation graph as constants and
// returns the graph-side view. The sparsity pattern is preserved: only the
// index and value vectors become graph nodes.
func (m *COO) On(g *Graph) *Matrix {
	rows, cols, values := m.Tensors()
	return &Matrix{
		numRows: m.NumRows,
		numCols: m.NumCols,
		rows:    Const(g, rows),
		cols:    Const(g, cols),
		values:  Const(g, values),
	}
}

// Matrix is a COO matrix lifted into a computation graph. It is a fixed
// structural operator: Apply is differentiable with respect to its input but
// has no parameters of its own.
type Matrix struct {
	numRows, numCols int
	rows, cols       *Node
	values           *Node
}

// Dims returns the dense shape of the matrix.
func (m *Matrix) Dims() (numRows, numCols int) { return m.numRows, m.numCols }

// Apply multiplies the sparse matrix by a batch of node features:
// x must be shaped [batch, numCols, channels] and the result is
// [batch, numRows, channels], with the row order of the result fixed by the
// matrix rows. It is built with Gather/ScatterAdd, so gradients flow back to
// x through both, and the matrix is never materialized densely.
func (m *Matrix) Apply(x *Node) *Node {
	if x.Rank() != 3 || x.Shape().Dimensions[1] != m.numCols {
		exceptions.Panicf("sparse.Matrix.Apply: features must be [batch, %d, channels], got %s",
			m.numCols, x.Shape())
	}
	g := x.Graph()
	dtype := x.DType()
	batchSize := x.Shape().Dimensions[0]
	channels := x.Shape().Dimensions[2]

	// Move nodes to the leading axis so entries can be gathered per non-zero.
	nodesFirst := Transpose(x, 0, 1) // [numCols, batch, channels]
	gathered := Gather(nodesFirst, ExpandAxes(m.cols, -1))
	gathered = Mul(gathered, InsertAxes(ConvertDType(m.values, dtype), -1, -1))

	pooled := ScatterAdd(
		Zeros(g, shapes.Make(dtype, m.numRows, batchSize, channels)),
		ExpandAxes(m.rows, -1),
		gathered,
		/* sorted= */ false, /* unique= */ false)
	return Transpose(pooled, 0, 1) // [batch, numRows, channels]
}
