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

package trainer

import (
	"testing"

	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/graph/graphtest"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridgnet/landmarks/anatomy"

	_ "github.com/gomlx/gomlx/backends/default"
)

// lossValue evaluates the composite loss on host tensors: the first tensor
// is the target, the remaining ones are the model outputs.
func lossValue(t *testing.T, matrices *anatomy.Matrices, kldWeight float64, target *tensors.Tensor, predictions ...*tensors.Tensor) float64 {
	t.Helper()
	backend := graphtest.BuildTestBackend()
	lossFn := CompositeLoss(matrices, kldWeight)
	exec := NewExec(backend, func(nodes []*Node) *Node {
		return lossFn(nodes[:1], nodes[1:])
	})
	args := make([]any, 0, 1+len(predictions))
	args = append(args, target)
	for _, p := range predictions {
		args = append(args, p)
	}
	outputs := exec.Call(args...)
	require.Len(t, outputs, 1)
	return float64(tensors.ToScalar[float32](outputs[0]))
}

func filled(value float32, dimensions ...int) *tensors.Tensor {
	size := 1
	for _, dim := range dimensions {
		size *= dim
	}
	flat := make([]float32, size)
	for ii := range flat {
		flat[ii] = value
	}
	return tensors.FromFlatDataAndDimensions(flat, dimensions...)
}

func TestCompositeLossRegressor(t *testing.T) {
	spec := anatomy.Lungs()
	matrices, err := anatomy.Build(spec)
	require.NoError(t, err)
	numNodes := spec.NumNodes()

	target := filled(0, 1, numNodes, 2)
	out := filled(1, 1, numNodes*2)
	assert.InDelta(t, 1.0, lossValue(t, matrices, 1e-5, target, out), 1e-6)

	// Perfect prediction scores zero.
	assert.InDelta(t, 0.0, lossValue(t, matrices, 1e-5, target, filled(0, 1, numNodes*2)), 1e-6)
}

func TestCompositeLossGenerative(t *testing.T) {
	spec := anatomy.Lungs()
	matrices, err := anatomy.Build(spec)
	require.NoError(t, err)
	numNodes, numCoarse := spec.NumNodes(), spec.NumCoarseNodes()
	const latents = 8

	target := filled(0, 1, numNodes, 2)
	zeroOut := filled(0, 1, numNodes, 2)
	zeroPre1 := filled(0, 1, numCoarse, 2)
	zeroMu := filled(0, 1, latents)
	zeroLogVar := filled(0, 1, latents)

	// All outputs perfect, standard-normal latent: zero loss.
	loss := lossValue(t, matrices, 1e-5, target, zeroOut, zeroPre1, zeroOut, zeroMu, zeroLogVar)
	assert.InDelta(t, 0.0, loss, 1e-6)

	// Only the final output off by one: the first MSE term contributes 1.
	loss = lossValue(t, matrices, 1e-5, target,
		filled(1, 1, numNodes, 2), zeroPre1, zeroOut, zeroMu, zeroLogVar)
	assert.InDelta(t, 1.0, loss, 1e-6)

	// The intermediate supervision terms count too.
	loss = lossValue(t, matrices, 1e-5, target,
		zeroOut, filled(1, 1, numCoarse, 2), filled(1, 1, numNodes, 2), zeroMu, zeroLogVar)
	assert.InDelta(t, 2.0, loss, 1e-6)

	// A unit-mean latent adds kldWeight * 0.5:
	// -0.5 * mean(1 + 0 - 1 - 1) = 0.5 per element.
	const kldWeight = 0.25
	loss = lossValue(t, matrices, kldWeight, target,
		zeroOut, zeroPre1, zeroOut, filled(1, 1, latents), zeroLogVar)
	assert.InDelta(t, kldWeight*0.5, loss, 1e-6)
}

// Each term contributes its own magnitude, so the total decomposes exactly.
func TestCompositeLossDecomposition(t *testing.T) {
	spec := anatomy.Lungs()
	matrices, err := anatomy.Build(spec)
	require.NoError(t, err)
	numNodes, numCoarse := spec.NumNodes(), spec.NumCoarseNodes()
	const latents = 8
	const kldWeight = 0.1

	target := filled(0, 1, numNodes, 2)
	// mse(out)=0.25, mse(pre1)=1, mse(pre2)=4, kld=0.5 scaled by 0.1.
	loss := lossValue(t, matrices, kldWeight, target,
		filled(0.5, 1, numNodes, 2),
		filled(1, 1, numCoarse, 2),
		filled(2, 1, numNodes, 2),
		filled(1, 1, latents),
		filled(0, 1, latents))
	assert.InDelta(t, 0.25+1+4+0.05, loss, 1e-5)
}

// pre1 is compared against the pooled target, not the full-resolution one:
// a coarse prediction equal to the pair midpoints is penalty-free.
func TestCompositeLossPoolsCoarseTarget(t *testing.T) {
	spec := anatomy.Lungs()
	matrices, err := anatomy.Build(spec)
	require.NoError(t, err)
	numNodes, numCoarse := spec.NumNodes(), spec.NumCoarseNodes()
	const latents = 4

	// Target alternates 0/1 per landmark, so every pooled pair is 0.5.
	flat := make([]float32, numNodes*2)
	for node := 0; node < numNodes; node++ {
		if node%2 == 1 {
			flat[2*node] = 1
			flat[2*node+1] = 1
		}
	}
	target := tensors.FromFlatDataAndDimensions(flat, 1, numNodes, 2)

	loss := lossValue(t, matrices, 0, target,
		target, filled(0.5, 1, numCoarse, 2), target,
		filled(0, 1, latents), filled(0, 1, latents))
	assert.InDelta(t, 0.0, loss, 1e-6)
}

func TestCompositeLossRejectsUnknownArity(t *testing.T) {
	spec := anatomy.Lungs()
	matrices, err := anatomy.Build(spec)
	require.NoError(t, err)
	numNodes := spec.NumNodes()

	backend := graphtest.BuildTestBackend()
	lossFn := CompositeLoss(matrices, 1e-5)
	exec := NewExec(backend, func(nodes []*Node) *Node {
		return lossFn(nodes[:1], nodes[1:])
	})
	assert.Panics(t, func() {
		_ = exec.Call(filled(0, 1, numNodes, 2), filled(0, 1, numNodes, 2), filled(0, 1, numNodes, 2))
	})
}
