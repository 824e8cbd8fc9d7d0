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
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Name:         "test-run",
		Model:        "HybridGNet",
		Epochs:       10,
		LearningRate: 1e-4,
		StepSize:     50,
		Gamma:        0.9,
		WeightDecay:  1e-5,
		KLDWeight:    1e-5,
		Latents:      64,
		Filters:      32,
		InputSize:    1024,
		OutputDir:    "Training",
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	config := validConfig()
	config.Name = ""
	require.Error(t, config.Validate())

	config = validConfig()
	config.Epochs = 0
	require.Error(t, config.Validate())

	config = validConfig()
	config.StepSize = -1
	require.Error(t, config.Validate())

	config = validConfig()
	config.InputSize = 0
	require.Error(t, config.Validate())
}

func TestNoteValidationKeepsStrictlyBest(t *testing.T) {
	trainer := &Trainer{bestMSE: 1e12}
	var saves []int
	for epoch, valMSE := range []float64{0.5, 0.3, 0.4, 0.2, 0.2} {
		if trainer.noteValidation(valMSE) {
			saves = append(saves, epoch)
		}
	}
	assert.Equal(t, []int{0, 1, 3}, saves)
	assert.Equal(t, 0.2, trainer.bestMSE)
}

func TestHasCheckpoint(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, hasCheckpoint(path.Join(dir, "missing")))
	assert.False(t, hasCheckpoint(dir), "empty directory is not a checkpoint")
	require.NoError(t, os.WriteFile(path.Join(dir, "checkpoint.json"), []byte("{}"), 0644))
	assert.True(t, hasCheckpoint(dir))
}

func TestMeanSquaredError(t *testing.T) {
	assert.Zero(t, meanSquaredError([]float32{0.5, 0.25}, []float32{0.5, 0.25}))
	assert.InDelta(t, 0.5, meanSquaredError([]float32{0, 0}, []float32{1, 0}), 1e-12)
	assert.InDelta(t, 1.0, meanSquaredError([]float32{0, 1}, []float32{1, 0}), 1e-12)
}
