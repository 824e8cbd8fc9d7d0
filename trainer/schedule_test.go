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

	"github.com/gomlx/gomlx/ml/context"
	"github.com/stretchr/testify/assert"
)

func TestStepScheduleValueAt(t *testing.T) {
	s := NewStepSchedule(context.New(), 0.1, 2, 0.5)
	assert.InDelta(t, 0.1, s.ValueAt(0), 1e-12)
	assert.InDelta(t, 0.1, s.ValueAt(1), 1e-12)
	assert.InDelta(t, 0.05, s.ValueAt(2), 1e-12)
	assert.InDelta(t, 0.05, s.ValueAt(3), 1e-12)
	assert.InDelta(t, 0.025, s.ValueAt(4), 1e-12)
}

func TestStepScheduleLongStep(t *testing.T) {
	// A step size beyond the horizon never decays.
	s := NewStepSchedule(context.New(), 1e-4, 1000, 0.1)
	assert.InDelta(t, 1e-4, s.ValueAt(999), 1e-18)
	assert.InDelta(t, 1e-5, s.ValueAt(1000), 1e-18)
}
