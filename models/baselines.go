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

package models

import (
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/layers"
	"github.com/gomlx/gomlx/ml/layers/activations"
	"github.com/gomlx/gomlx/ml/train"

	"github.com/hybridgnet/landmarks/anatomy"
)

// PCAGraph returns the model function of the PCA-style baseline: a
// convolutional encoder followed by a linear projection into a small latent
// and a linear decode straight to the flat landmark vector. The two stacked
// linear maps play the role of a learned low-rank (principal-component)
// shape basis.
func PCAGraph(spec anatomy.Spec) train.ModelFn {
	return func(ctx *context.Context, _ any, inputs []*Node) []*Node {
		ctx = ctx.In("model")
		images := inputs[0]
		batchSize := images.Shape().Dimensions[0]
		latents := context.GetParamOr(ctx, ParamLatents, 64)

		x := images
		for blockIdx, channels := range []int{8, 16, 32, 32, 64, 64} {
			blockCtx := ctx.Inf("%03d_conv", blockIdx)
			x = layers.Convolution(blockCtx, x).Filters(channels).KernelSize(3).Strides(2).PadSame().Done()
			x = activations.Relu(x)
		}
		x = Reshape(x, batchSize, -1)
		x = layers.DenseWithBias(ctx.In("components"), x, latents)
		out := layers.DenseWithBias(ctx.In("decode"), x, spec.NumNodes()*2)
		out.AssertDims(batchSize, spec.NumNodes()*2)
		return []*Node{out}
	}
}

// FCGraph returns the model function of the fully-connected baseline: the
// image is aggressively mean-pooled, flattened and regressed to the flat
// landmark vector through a small dense stack.
func FCGraph(spec anatomy.Spec) train.ModelFn {
	return func(ctx *context.Context, _ any, inputs []*Node) []*Node {
		ctx = ctx.In("model")
		images := inputs[0]
		batchSize := images.Shape().Dimensions[0]

		// Pool to a manageable flat size before the dense layers.
		x := MeanPool(images).Window(16).Done()
		x = Reshape(x, batchSize, -1)
		x = layers.DenseWithBias(ctx.In("hidden_0"), x, 512)
		x = activations.Relu(x)
		x = layers.DenseWithBias(ctx.In("hidden_1"), x, 256)
		x = activations.Relu(x)
		out := layers.DenseWithBias(ctx.In("out"), x, spec.NumNodes()*2)
		out.AssertDims(batchSize, spec.NumNodes()*2)
		return []*Node{out}
	}
}
