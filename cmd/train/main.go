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

// Trainer for chest X-ray anatomical landmark models.
//
// It trains one of the models (HybridGNet, PCA or FC) on one
// cross-validation fold and writes checkpoints and metrics under
// Training/<name>/.
//
// Expected data layout under --data:
//
//	Images/                  radiographs (PNG)
//	Landmarks/               one <image>.txt per radiograph, "x y" per line
//	train_images_lungs.txt   image list, lung landmarks only
//	train_images_heart.txt   image list, lungs and heart landmarks
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/data"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	"github.com/hybridgnet/landmarks/anatomy"
	"github.com/hybridgnet/landmarks/chestxray"
	"github.com/hybridgnet/landmarks/models"
	"github.com/hybridgnet/landmarks/trainer"

	_ "github.com/gomlx/gomlx/backends/xla"
)

// Fixed hyperparameters, matching the published training setup.
const (
	latents       = 64
	batchSize     = 4
	valBatchSize  = 1
	weightDecay   = 1e-5
	kldWeight     = 1e-5
	inputSize     = 1024
	trainShuffles = trainer.RandomSeed
)

var (
	flagName  = flag.String("name", "", "Name of the run, also the checkpoint directory under --output.")
	flagModel = flag.String("model", "HybridGNet", fmt.Sprintf("Model to train, one of %v.", models.ValidModels))

	flagEpochs   = flag.Int("epochs", 2500, "Number of training epochs.")
	flagLR       = flag.Float64("lr", 1e-4, "Initial learning rate.")
	flagStepSize = flag.Int("stepsize", 50, "Epochs between learning rate decays.")
	flagGamma    = flag.Float64("gamma", 0.9, "Learning rate decay factor.")

	flagFold  = flag.Int("fold", 1, fmt.Sprintf("Cross-validation fold, 1 to %d.", chestxray.NumFolds))
	flagF     = flag.Int("f", 32, "Filter width of the graph decoder at low resolution.")
	flagLungs = flag.Bool("lungs", false, "Train on lung landmarks only, without the heart.")

	flagData   = flag.String("data", "~/work/chestxray", "Directory with the Images/, Landmarks/ and image list files.")
	flagOutput = flag.String("output", "Training", "Base directory for run checkpoints and metrics.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagName == "" {
		fmt.Fprintln(os.Stderr, "Flag --name is required: it names the run's output directory.")
		flag.Usage()
		os.Exit(1)
	}

	dataDir := data.ReplaceTildeInDir(*flagData)
	spec := anatomy.LungsHeart()
	listFile := "train_images_heart.txt"
	if *flagLungs {
		spec = anatomy.Lungs()
		listFile = "train_images_lungs.txt"
	}

	ids := must.M1(chestxray.ReadImageList(path.Join(dataDir, listFile)))
	trainIDs, valIDs := must.M2(chestxray.CrossVal(chestxray.Shuffle(ids), *flagFold))
	fmt.Printf("Fold %d/%d: %d training images, %d validation images\n",
		*flagFold, chestxray.NumFolds, len(trainIDs), len(valIDs))

	imagesDir := path.Join(dataDir, "Images")
	landmarksDir := path.Join(dataDir, "Landmarks")
	trainDS := chestxray.NewDataset("train", imagesDir, landmarksDir, trainIDs, spec, inputSize, batchSize).
		WithShuffle(rand.New(rand.NewSource(trainShuffles))).
		WithAugmentation(chestxray.NewAugmentation(rand.New(rand.NewSource(trainShuffles))))
	valDS := chestxray.NewDataset("validation", imagesDir, landmarksDir, valIDs, spec, inputSize, valBatchSize)

	backend := must.M1(backends.New())
	fmt.Printf("Backend %q:\t%s\n", backend.Name(), backend.Description())
	ctx := context.New()

	config := trainer.Config{
		Name:         *flagName,
		Model:        *flagModel,
		Epochs:       *flagEpochs,
		LearningRate: *flagLR,
		StepSize:     *flagStepSize,
		Gamma:        *flagGamma,
		WeightDecay:  weightDecay,
		KLDWeight:    kldWeight,
		Latents:      latents,
		Filters:      *flagF,
		InputSize:    inputSize,
		OutputDir:    *flagOutput,
	}
	t := must.M1(trainer.New(backend, ctx, config, spec))
	must.M(t.Run(trainDS, valDS))
}
