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

// Package models builds the computation graphs of the landmark regressors:
// the HybridGNet graph-convolutional variational autoencoder and the PCA/FC
// baselines.
//
// All models implement train.ModelFn. Their output contract, consumed by the
// trainer's composite loss, is:
//
//   - baselines: a single prediction [batch, numNodes*2];
//   - HybridGNet: [final, pre1, pre2, mu, logVar], where final and pre2 are
//     full-resolution predictions [batch, numNodes, 2], pre1 is the coarse
//     prediction [batch, numCoarseNodes, 2], and mu/logVar parameterize the
//     variational latent.
package models

import (
	"slices"

	"github.com/gomlx/gomlx/ml/train"
	"github.com/pkg/errors"

	"github.com/hybridgnet/landmarks/anatomy"
)

// Hyperparameter names, set from the command line surface.
const (
	// ParamModel selects the architecture: one of ValidModels.
	ParamModel = "model"

	// ParamLatents is the size of the (variational) latent vector.
	ParamLatents = "latents"

	// ParamFilters is the filter width at low resolution for HybridGNet.
	ParamFilters = "f"

	// ParamKLDWeight scales the Kullback-Leibler regularization term of the
	// variational latent inside the composite loss.
	ParamKLDWeight = "kld_weight"

	// ParamInputSize is the (square) input image size in pixels.
	ParamInputSize = "inputsize"
)

// ValidModels are the accepted values of ParamModel.
var ValidModels = []string{"HybridGNet", "PCA", "FC"}

// Select returns the model graph function named by the ParamModel
// hyperparameter, closed over the anatomical graph matrices. An unknown
// model name is a configuration error, fatal before any training starts.
func Select(name string, spec anatomy.Spec, matrices *anatomy.Matrices) (train.ModelFn, error) {
	if !slices.Contains(ValidModels, name) {
		return nil, errors.Errorf("no valid model %q, choose between %v", name, ValidModels)
	}
	switch name {
	case "HybridGNet":
		return HybridGNetGraph(spec, matrices), nil
	case "PCA":
		return PCAGraph(spec), nil
	default:
		return FCGraph(spec), nil
	}
}
