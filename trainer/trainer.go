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
	"fmt"
	"io"
	"os"
	"path"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/context/checkpoints"
	"github.com/gomlx/gomlx/ml/train"
	"github.com/gomlx/gomlx/ml/train/metrics"
	"github.com/gomlx/gomlx/ml/train/optimizers"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/hybridgnet/landmarks/anatomy"
	"github.com/hybridgnet/landmarks/chestxray"
	"github.com/hybridgnet/landmarks/hausdorff"
	"github.com/hybridgnet/landmarks/models"
)

// RandomSeed initializes the model parameters and the latent sampling, so
// runs with the same configuration are repeatable.
const RandomSeed = 420

// Scalar tags written to the run's plot points file.
const (
	TagTrainLoss    = "Train/Loss"
	TagTrainMSE     = "Train/MSE"
	TagValMSE       = "Validation/MSE"
	TagValHausdorff = "Validation/Hausdorff Distance"
)

// Config is the full configuration surface of a training run.
type Config struct {
	// Name of the run: checkpoints and scalars go to <OutputDir>/<Name>.
	Name string

	// Model is one of models.ValidModels.
	Model string

	// Epochs to train for.
	Epochs int

	// LearningRate is the initial Adam learning rate; it is multiplied by
	// Gamma every StepSize epochs.
	LearningRate float64
	StepSize     int
	Gamma        float64

	// WeightDecay is the Adam weight decay.
	WeightDecay float64

	// KLDWeight scales the latent regularization term of the loss.
	KLDWeight float64

	// Latents is the latent vector size, Filters the low-resolution filter
	// width of the graph decoder.
	Latents int
	Filters int

	// InputSize is the (square) image size in pixels. Landmarks are
	// normalized to [0, 1), so errors reported in pixels are scaled by
	// InputSize².
	InputSize int

	// OutputDir is the base directory for runs.
	OutputDir string
}

// Validate fails fast on configurations that would only error deep inside
// the training loop.
func (c Config) Validate() error {
	if c.Name == "" {
		return errors.New("training run needs a name")
	}
	if c.Epochs <= 0 {
		return errors.Errorf("epochs must be positive, got %d", c.Epochs)
	}
	if c.StepSize <= 0 {
		return errors.Errorf("stepsize must be positive, got %d", c.StepSize)
	}
	if c.InputSize <= 0 {
		return errors.Errorf("inputsize must be positive, got %d", c.InputSize)
	}
	return nil
}

// Trainer orchestrates one training run: the epoch loop over the training
// dataset, validation with MSE and the boundary distance, checkpointing of
// the best and final models and the staircase learning rate decay.
type Trainer struct {
	config   Config
	backend  backends.Backend
	ctx      *context.Context
	spec     anatomy.Spec
	trainer  *train.Trainer
	loop     *train.Loop
	valExec  *context.Exec
	schedule *StepSchedule
	scalars  *ScalarLog
	best     *checkpoints.Handler
	final    *checkpoints.Handler

	// bestMSE is the lowest validation MSE seen so far; the best checkpoint
	// is only rewritten when a strictly lower value appears.
	bestMSE float64
}

// New builds the trainer: model, loss, optimizer, metrics, checkpoint
// handlers and the validation executor. It creates (or resumes from) the run
// directory <OutputDir>/<Name>.
func New(backend backends.Backend, ctx *context.Context, config Config, spec anatomy.Spec) (*Trainer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	ctx.RngStateFromSeed(RandomSeed)
	ctx.SetParams(map[string]any{
		models.ParamModel:     config.Model,
		models.ParamLatents:   config.Latents,
		models.ParamFilters:   config.Filters,
		models.ParamKLDWeight: config.KLDWeight,
		models.ParamInputSize: config.InputSize,
	})

	matrices, err := anatomy.Build(spec)
	if err != nil {
		return nil, err
	}
	modelFn, err := models.Select(config.Model, spec, matrices)
	if err != nil {
		return nil, err
	}

	lossFn := CompositeLoss(matrices, config.KLDWeight)
	trainMetrics := []metrics.Interface{
		metrics.NewMeanMetric(TagTrainLoss, "#loss", "loss",
			func(_ *context.Context, labels, predictions []*graph.Node) *graph.Node {
				return lossFn(labels, predictions)
			}, nil),
		metrics.NewMeanMetric(TagTrainMSE, "#mse", "loss", ReconstructionMSE, nil),
	}

	optimizer := optimizers.Adam().
		LearningRate(config.LearningRate).
		WeightDecay(config.WeightDecay).
		Done()
	gomlxTrainer := train.NewTrainer(backend, ctx, modelFn, lossFn, optimizer, trainMetrics, nil)
	loop := train.NewLoop(gomlxTrainer)
	commandline.AttachProgressBar(loop)

	runDir := path.Join(config.OutputDir, config.Name)
	if err = os.MkdirAll(runDir, 0775); err != nil {
		return nil, errors.Wrapf(err, "failed to create run directory %q", runDir)
	}
	// Attaching a handler loads any checkpoint already in its directory, so
	// a reused run name resumes from that run's last saved weights (the
	// final handler attaches second and wins). Make that visible.
	finalDir := path.Join(runDir, "final")
	if hasCheckpoint(finalDir) {
		fmt.Printf("Run %q already has a checkpoint in %q: resuming from it.\n", config.Name, finalDir)
	}
	best, err := checkpoints.Build(ctx).Dir(path.Join(runDir, "bestMSE")).Keep(1).Done()
	if err != nil {
		return nil, err
	}
	final, err := checkpoints.Build(ctx).Dir(finalDir).Keep(1).Done()
	if err != nil {
		return nil, err
	}
	scalars, err := NewScalarLog(runDir)
	if err != nil {
		return nil, err
	}

	// Executor used for validation: same variables, training behaviors
	// (latent sampling) turned off, only the final prediction returned.
	valExec := context.NewExec(backend, ctx, func(ctx *context.Context, images *graph.Node) *graph.Node {
		ctx.SetTraining(images.Graph(), false)
		return modelFn(ctx, nil, []*graph.Node{images})[0]
	})

	return &Trainer{
		config:   config,
		backend:  backend,
		ctx:      ctx,
		spec:     spec,
		trainer:  gomlxTrainer,
		loop:     loop,
		valExec:  valExec,
		schedule: NewStepSchedule(ctx, config.LearningRate, config.StepSize, config.Gamma),
		scalars:  scalars,
		best:     best,
		final:    final,
		bestMSE:  1e12,
	}, nil
}

// Run trains for the configured number of epochs, validating and
// checkpointing after each one. The final model is always saved at the end,
// regardless of its validation score.
func (t *Trainer) Run(trainDS, valDS *chestxray.Dataset) error {
	fmt.Printf("Training %q (%s) for %d epochs, %s parameters\n",
		t.config.Name, t.config.Model, t.config.Epochs,
		humanize.Comma(int64(t.ctx.NumParameters())))
	for epoch := 0; epoch < t.config.Epochs; epoch++ {
		trainLoss, trainMSE, err := t.trainEpoch(trainDS)
		if err != nil {
			return errors.WithMessagef(err, "training epoch %d", epoch)
		}
		valMSE, valHD, err := t.validate(valDS)
		if err != nil {
			return errors.WithMessagef(err, "validating epoch %d", epoch)
		}

		// Landmarks live in [0, 1), report squared errors in pixels².
		pixels2 := float64(t.config.InputSize) * float64(t.config.InputSize)
		fmt.Printf("Epoch %d/%d: train loss=%.6f, train MSE=%.3f, val MSE=%.3f, val Hausdorff=%.3f\n",
			epoch+1, t.config.Epochs, trainLoss, trainMSE*pixels2, valMSE*pixels2, valHD)

		if err = t.logScalars(epoch, trainLoss, trainMSE, valMSE, valHD); err != nil {
			return err
		}
		if t.noteValidation(valMSE) {
			if err = t.best.Save(); err != nil {
				return errors.WithMessage(err, "saving best checkpoint")
			}
			fmt.Printf("\tBest model yet, saved to %q\n", t.best.Dir())
		}
		t.schedule.Step(epoch + 1)
	}
	if err := t.final.Save(); err != nil {
		return errors.WithMessage(err, "saving final checkpoint")
	}
	klog.Infof("Finished %q: best validation MSE %.6f, final model in %q",
		t.config.Name, t.bestMSE, t.final.Dir())
	return t.scalars.Close()
}

// hasCheckpoint reports whether dir already holds saved checkpoint state.
func hasCheckpoint(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}

// noteValidation tracks the best validation MSE and reports whether this
// epoch's model should overwrite the best checkpoint. Only a strictly lower
// value counts, so ties keep the earlier model.
func (t *Trainer) noteValidation(valMSE float64) bool {
	if valMSE >= t.bestMSE {
		return false
	}
	t.bestMSE = valMSE
	return true
}

// trainEpoch runs one pass over the training dataset and returns the mean
// loss and mean reconstruction MSE over its batches.
func (t *Trainer) trainEpoch(ds *chestxray.Dataset) (loss, mse float64, err error) {
	metricValues, err := t.loop.RunEpochs(ds, 1)
	if err != nil {
		return 0, 0, err
	}
	for i, metric := range t.trainer.TrainMetrics() {
		switch metric.Name() {
		case TagTrainLoss:
			loss = float64(tensors.ToScalar[float32](metricValues[i]))
		case TagTrainMSE:
			mse = float64(tensors.ToScalar[float32](metricValues[i]))
		}
	}
	return loss, mse, nil
}

// validate runs the model over the validation dataset and returns the mean
// MSE and the mean rasterized Hausdorff distance, both averaged per sample.
func (t *Trainer) validate(ds *chestxray.Dataset) (valMSE, valHD float64, err error) {
	defer ds.Reset()
	var sumMSE, sumHD float64
	samples := 0
	for {
		_, inputs, labels, yieldErr := ds.Yield()
		if yieldErr == io.EOF {
			break
		}
		if yieldErr != nil {
			return 0, 0, yieldErr
		}
		var predicted *tensors.Tensor
		err = exceptions.TryCatch[error](func() {
			predicted = t.valExec.Call(inputs[0])[0]
		})
		if err != nil {
			return 0, 0, err
		}
		pred := tensors.CopyFlatData[float32](predicted)
		target := tensors.CopyFlatData[float32](labels[0])
		if len(pred) != len(target) {
			return 0, 0, errors.Errorf("prediction has %d values, target has %d", len(pred), len(target))
		}

		// Split the batch back into samples for the per-organ distance.
		sampleLen := 2 * t.spec.NumNodes()
		for start := 0; start+sampleLen <= len(target); start += sampleLen {
			sumMSE += meanSquaredError(target[start:start+sampleLen], pred[start:start+sampleLen])
			regions, hdErr := hausdorff.Regions(
				target[start:start+sampleLen], pred[start:start+sampleLen],
				t.config.InputSize, t.spec)
			if hdErr != nil {
				return 0, 0, hdErr
			}
			sumHD += hausdorff.Mean(regions)
			samples++
		}
	}
	if samples == 0 {
		return 0, 0, errors.New("validation dataset yielded no samples")
	}
	return sumMSE / float64(samples), sumHD / float64(samples), nil
}

// logScalars appends the epoch's metrics to the scalar log. The MSE series
// are stored in pixel² units, same scale as the console lines, so the raw
// normalized [0, 1) values never leak into the time series.
func (t *Trainer) logScalars(epoch int, trainLoss, trainMSE, valMSE, valHD float64) error {
	pixels2 := float64(t.config.InputSize) * float64(t.config.InputSize)
	for _, point := range []struct {
		tag, short, metricType string
		value                  float64
	}{
		{TagTrainLoss, "#loss", "loss", trainLoss},
		{TagTrainMSE, "#mse", "loss", trainMSE * pixels2},
		{TagValMSE, "#vmse", "loss", valMSE * pixels2},
		{TagValHausdorff, "#hd", "distance", valHD},
	} {
		if err := t.scalars.Add(point.tag, point.short, point.metricType, epoch, point.value); err != nil {
			return err
		}
	}
	return nil
}

func meanSquaredError(target, predicted []float32) float64 {
	var sum float64
	for i := range target {
		d := float64(predicted[i]) - float64(target[i])
		sum += d * d
	}
	return sum / float64(len(target))
}
