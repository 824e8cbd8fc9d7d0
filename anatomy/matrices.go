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
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/hybridgnet/landmarks/sparse"
)

// Matrices holds the sparse operators of the two-resolution landmark graph:
//
//   - A: fine adjacency, [N, N], symmetric.
//   - AD: coarse adjacency, [N', N'], symmetric.
//   - D: pooling (downsample) operator, [N', N] -- coarse node i is the
//     average of fine nodes 2i and 2i+1 of its organ.
//   - U: up-sampling operator, [N, N'] -- both fine nodes of a pair copy
//     their coarse node.
//   - AHat, ADHat: symmetrically-normalized adjacencies with self-loops,
//     precomputed for the graph convolutions.
//
// D and U are structural inverses in topology: each fine node maps to
// exactly one coarse node.
type Matrices struct {
	A, AD, D, U *sparse.COO
	AHat, ADHat *sparse.COO
}

// Build constructs the graph matrices for the given anatomical
// specification. Each organ contour is a closed cycle, block-diagonal with
// the other organs at both resolutions.
func Build(spec Spec) (*Matrices, error) {
	if err := spec.Check(); err != nil {
		return nil, err
	}
	numFine := spec.NumNodes()
	numCoarse := spec.NumCoarseNodes()

	fineAdj := mat.NewDense(numFine, numFine, nil)
	coarseAdj := mat.NewDense(numCoarse, numCoarse, nil)
	down := sparse.NewCOO(numCoarse, numFine)
	up := sparse.NewCOO(numFine, numCoarse)

	fineAt, coarseAt := 0, 0
	for _, organ := range spec.Organs() {
		cycle(fineAdj, fineAt, organ.NumNodes)
		cycle(coarseAdj, coarseAt, organ.NumNodes/2)
		for ii := 0; ii < organ.NumNodes/2; ii++ {
			coarseNode := coarseAt + ii
			for _, fineNode := range []int{fineAt + 2*ii, fineAt + 2*ii + 1} {
				down.Set(coarseNode, fineNode, 0.5)
				up.Set(fineNode, coarseNode, 1)
			}
		}
		fineAt += organ.NumNodes
		coarseAt += organ.NumNodes / 2
	}

	m := &Matrices{
		A:     sparse.FromDense(fineAdj),
		AD:    sparse.FromDense(coarseAdj),
		D:     down,
		U:     up,
		AHat:  sparse.FromDense(normalizeAdjacency(fineAdj)),
		ADHat: sparse.FromDense(normalizeAdjacency(coarseAdj)),
	}
	if err := m.check(); err != nil {
		return nil, err
	}
	return m, nil
}

// cycle connects nodes [offset, offset+size) as a closed contour.
func cycle(adj *mat.Dense, offset, size int) {
	for ii := 0; ii < size; ii++ {
		next := offset + (ii+1)%size
		adj.Set(offset+ii, next, 1)
		adj.Set(next, offset+ii, 1)
	}
}

// normalizeAdjacency returns Â = Dg^-1/2 (A + I) Dg^-1/2, the symmetric
// normalization with self-loops used by the graph convolutions.
func normalizeAdjacency(adj *mat.Dense) *mat.Dense {
	n, _ := adj.Dims()
	withLoops := mat.NewDense(n, n, nil)
	withLoops.Copy(adj)
	for ii := 0; ii < n; ii++ {
		withLoops.Set(ii, ii, withLoops.At(ii, ii)+1)
	}
	invSqrtDegree := make([]float64, n)
	for ii := 0; ii < n; ii++ {
		invSqrtDegree[ii] = 1 / math.Sqrt(mat.Sum(withLoops.RowView(ii)))
	}
	normalized := mat.NewDense(n, n, nil)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			if v := withLoops.At(row, col); v != 0 {
				normalized.Set(row, col, v*invSqrtDegree[row]*invSqrtDegree[col])
			}
		}
	}
	return normalized
}

// check fails fast on any node-count mismatch between the operators, rather
// than letting a malformed topology surface as a wrong shape deep inside a
// computation graph.
func (m *Matrices) check() error {
	for name, coo := range map[string]*sparse.COO{
		"A": m.A, "AD": m.AD, "D": m.D, "U": m.U, "AHat": m.AHat, "ADHat": m.ADHat,
	} {
		if err := coo.Check(); err != nil {
			return errors.WithMessagef(err, "anatomy: matrix %s", name)
		}
	}
	numFine, numCoarse := m.A.NumRows, m.AD.NumRows
	if m.A.NumCols != numFine || m.AD.NumCols != numCoarse {
		return errors.Errorf("anatomy: adjacencies must be square, got A=[%d, %d], AD=[%d, %d]",
			m.A.NumRows, m.A.NumCols, m.AD.NumRows, m.AD.NumCols)
	}
	if m.D.NumRows != numCoarse || m.D.NumCols != numFine {
		return errors.Errorf("anatomy: pooling matrix is [%d, %d], want [%d, %d]",
			m.D.NumRows, m.D.NumCols, numCoarse, numFine)
	}
	if m.U.NumRows != numFine || m.U.NumCols != numCoarse {
		return errors.Errorf("anatomy: up-sampling matrix is [%d, %d], want [%d, %d]",
			m.U.NumRows, m.U.NumCols, numFine, numCoarse)
	}
	return nil
}
