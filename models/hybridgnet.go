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
	"github.com/gomlx/gomlx/types/shapes"

	"github.com/hybridgnet/landmarks/anatomy"
	"github.com/hybridgnet/landmarks/sparse"
)

// HybridGNetGraph returns the model function of the graph-convolutional
// variational autoencoder with intermediate-supervision skip connections.
//
// A convolutional encoder maps the image to a Normal latent (mu, logVar).
// The decoder starts at the coarse graph resolution, runs graph
// convolutions over the normalized coarse adjacency, emits the coarse
// prediction pre1, up-samples to full resolution (concatenating the
// up-sampled pre1 as a skip connection), emits pre2 after the first fine
// block, and refines to the final prediction.
func HybridGNetGraph(spec anatomy.Spec, matrices *anatomy.Matrices) train.ModelFn {
	return func(ctx *context.Context, _ any, inputs []*Node) []*Node {
		ctx = ctx.In("model")
		images := inputs[0]
		g := images.Graph()
		batchSize := images.Shape().Dimensions[0]
		numCoarse := spec.NumCoarseNodes()
		numFine := spec.NumNodes()

		latents := context.GetParamOr(ctx, ParamLatents, 64)
		filters := context.GetParamOr(ctx, ParamFilters, 32)

		// Structural operators, lifted into this graph.
		coarseAdj := matrices.ADHat.On(g)
		fineAdj := matrices.AHat.On(g)
		unpool := matrices.U.On(g)

		// Encoder: stride-2 convolution blocks down to a small spatial map.
		x := images
		for blockIdx, channels := range []int{filters / 2, filters / 2, filters, filters, 2 * filters, 2 * filters} {
			blockCtx := ctx.Inf("%03d_conv", blockIdx)
			x = layers.Convolution(blockCtx, x).Filters(channels).KernelSize(3).Strides(2).PadSame().Done()
			x = activations.Relu(x)
		}
		x = Reshape(x, batchSize, -1)

		// Variational latent.
		mu := layers.DenseWithBias(ctx.In("mu"), x, latents)
		logVar := layers.DenseWithBias(ctx.In("log_var"), x, latents)
		z := mu
		if ctx.IsTraining(g) {
			// Reparameterization: z = mu + eps*sigma, eps ~ N(0, 1).
			eps := ctx.RandomNormal(g, shapes.Make(mu.DType(), batchSize, latents))
			z = Add(mu, Mul(eps, Exp(MulScalar(logVar, 0.5))))
		}

		// Decoder, coarse resolution.
		features := layers.DenseWithBias(ctx.In("latent_to_graph"), z, numCoarse*filters)
		features = Reshape(features, batchSize, numCoarse, filters)
		for blockIdx := 0; blockIdx < 3; blockIdx++ {
			features = graphConv(ctx.Inf("%03d_coarse_gconv", blockIdx), features, coarseAdj, filters, true)
		}
		pre1 := graphConv(ctx.In("coarse_out"), features, coarseAdj, 2, false)
		pre1.AssertDims(batchSize, numCoarse, 2)

		// Up-sample, with the coarse prediction as a skip connection.
		features = unpool.Apply(features)
		skip := unpool.Apply(pre1)
		features = Concatenate([]*Node{features, skip}, -1)

		features = graphConv(ctx.In("000_fine_gconv"), features, fineAdj, filters, true)
		pre2 := graphConv(ctx.In("fine_mid_out"), features, fineAdj, 2, false)
		pre2.AssertDims(batchSize, numFine, 2)

		features = Concatenate([]*Node{features, pre2}, -1)
		for blockIdx := 1; blockIdx < 3; blockIdx++ {
			features = graphConv(ctx.Inf("%03d_fine_gconv", blockIdx), features, fineAdj, filters, true)
		}
		out := graphConv(ctx.In("fine_out"), features, fineAdj, 2, false)
		out.AssertDims(batchSize, numFine, 2)

		return []*Node{out, pre1, pre2, mu, logVar}
	}
}

// graphConv is one spectral graph convolution: a learnable transform of each
// node's own features plus a learnable transform of its (normalized)
// neighborhood aggregate. adj must be the symmetrically-normalized adjacency
// for the resolution of x ([batch, numNodes, channels]).
func graphConv(ctx *context.Context, x *Node, adj *sparse.Matrix, outChannels int, activate bool) *Node {
	neighbors := adj.Apply(x)
	out := Add(
		layers.Dense(ctx.In("self"), x, false, outChannels),
		layers.DenseWithBias(ctx.In("neighbors"), neighbors, outChannels))
	if activate {
		out = activations.Relu(out)
	}
	return out
}
