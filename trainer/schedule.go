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
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/train/optimizers"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
)

// StepSchedule decays the learning rate by a multiplicative factor at fixed
// epoch intervals, the usual staircase schedule.
type StepSchedule struct {
	ctx      *context.Context
	base     float64
	stepSize int
	gamma    float64
}

// NewStepSchedule returns a schedule starting at base that is multiplied by
// gamma every stepSize epochs. The context must be the same one the optimizer
// was built with, so the schedule updates the optimizer's learning rate
// variable in place.
func NewStepSchedule(ctx *context.Context, base float64, stepSize int, gamma float64) *StepSchedule {
	return &StepSchedule{ctx: ctx, base: base, stepSize: stepSize, gamma: gamma}
}

// ValueAt returns the learning rate in effect during the given epoch
// (0-based).
func (s *StepSchedule) ValueAt(epoch int) float64 {
	lr := s.base
	for i := s.stepSize; i <= epoch; i += s.stepSize {
		lr *= s.gamma
	}
	return lr
}

// Step updates the learning rate variable after epochsDone epochs have
// completed, so the next epoch trains with the decayed rate.
func (s *StepSchedule) Step(epochsDone int) {
	lrVar := optimizers.LearningRateVar(s.ctx, dtypes.Float32, s.base)
	lrVar.SetValue(tensors.FromScalar(float32(s.ValueAt(epochsDone))))
}
