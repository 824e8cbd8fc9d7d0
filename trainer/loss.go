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

// Package trainer runs the epoch loop for landmark models: composite loss,
// validation with the boundary distance metric, checkpointing and learning
// rate decay.
package trainer

import (
	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/train/losses"

	"github.com/hybridgnet/landmarks/anatomy"
)

// CompositeLoss returns the training loss for any of the landmark models.
//
// Regressors output only their prediction and are trained with plain MSE
// against the target landmarks. The generative model outputs
// [final, pre1, pre2, mu, logVar]: the three reconstructions are each
// penalized with MSE -- pre1 against the target pooled to the coarse
// resolution -- and the KL divergence of the latent posterior against a
// standard normal is added, scaled by kldWeight.
func CompositeLoss(matrices *anatomy.Matrices, kldWeight float64) losses.LossFn {
	return func(labels, predictions []*Node) *Node {
		target := labels[0] // [batch, numNodes, 2]
		switch len(predictions) {
		case 1:
			out := predictions[0]
			return mse(out, Reshape(target, out.Shape().Dimensions...))
		case 5:
			g := target.Graph()
			out, pre1, pre2 := predictions[0], predictions[1], predictions[2]
			mu, logVar := predictions[3], predictions[4]
			coarseTarget := matrices.D.On(g).Apply(target)
			loss := Add(mse(out, target), mse(pre1, coarseTarget))
			loss = Add(loss, mse(pre2, target))
			return Add(loss, MulScalar(klDivergence(mu, logVar), kldWeight))
		}
		exceptions.Panicf("model returned %d outputs, want 1 (regressor) or 5 (generative)", len(predictions))
		return nil
	}
}

// ReconstructionMSE is the metric counterpart of the loss: MSE of the final
// prediction only, ignoring the intermediate outputs and the KL term.
func ReconstructionMSE(_ *context.Context, labels, predictions []*Node) *Node {
	target := labels[0]
	out := predictions[0]
	return mse(out, Reshape(target, out.Shape().Dimensions...))
}

func mse(a, b *Node) *Node {
	return ReduceAllMean(Square(Sub(a, b)))
}

// klDivergence computes KL(N(mu, exp(logVar)) || N(0, 1)), averaged over the
// batch and latent dimensions.
func klDivergence(mu, logVar *Node) *Node {
	perElement := Sub(Sub(AddScalar(logVar, 1.0), Square(mu)), Exp(logVar))
	return MulScalar(ReduceAllMean(perElement), -0.5)
}
