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

package chestxray

import (
	"image"
	"image/color"
	"math"
	"math/rand"

	"github.com/disintegration/imaging"
)

// Augmentation applies the train-time geometric and photometric jitter:
// random isotropic scaling, a small random rotation and brightness/contrast
// jitter. Geometric transforms are applied consistently to the image and to
// its normalized landmarks, both relative to the image center.
//
// Validation datasets use no Augmentation.
type Augmentation struct {
	rng *rand.Rand

	// ScaleLow/ScaleHigh bound the random isotropic scale factor.
	ScaleLow, ScaleHigh float64

	// MaxAngleDeg bounds the random rotation, drawn uniformly from
	// [-MaxAngleDeg, MaxAngleDeg].
	MaxAngleDeg float64

	// ColorJitter bounds the relative brightness and contrast adjustment.
	ColorJitter float64
}

// NewAugmentation returns the augmentation used for training: scale in
// [0.95, 1.05], rotation up to 3 degrees, color jitter up to 40%.
func NewAugmentation(rng *rand.Rand) *Augmentation {
	return &Augmentation{
		rng:         rng,
		ScaleLow:    0.95,
		ScaleHigh:   1.05,
		MaxAngleDeg: 3,
		ColorJitter: 0.40,
	}
}

// Apply returns the augmented image and landmarks. The input slice is not
// modified; landmarks are in normalized [0, 1) coordinates.
func (a *Augmentation) Apply(img image.Image, landmarks []float32) (image.Image, []float32) {
	size := img.Bounds().Dx()
	scale := a.ScaleLow + a.rng.Float64()*(a.ScaleHigh-a.ScaleLow)
	angleDeg := (a.rng.Float64()*2 - 1) * a.MaxAngleDeg

	// Scale about the center: resize, then crop or pad back to size.
	scaled := imaging.Resize(img, int(math.Round(float64(size)*scale)), 0, imaging.Linear)
	if scaled.Bounds().Dx() >= size {
		img = imaging.CropCenter(scaled, size, size)
	} else {
		canvas := imaging.New(size, size, color.Black)
		img = imaging.PasteCenter(canvas, scaled)
	}
	img = imaging.Rotate(img, angleDeg, color.Black)
	img = imaging.CropCenter(img, size, size)

	// Photometric jitter leaves the landmarks untouched.
	img = imaging.AdjustBrightness(img, (a.rng.Float64()*2-1)*a.ColorJitter*100)
	img = imaging.AdjustContrast(img, (a.rng.Float64()*2-1)*a.ColorJitter*100)

	// Same transform on the landmarks, about the normalized center. Image
	// rows grow downwards, so the rotation sign flips relative to the
	// counter-clockwise image rotation.
	sin, cos := math.Sincos(angleDeg * math.Pi / 180)
	out := make([]float32, len(landmarks))
	for ii := 0; ii+1 < len(landmarks); ii += 2 {
		x := (float64(landmarks[ii]) - 0.5) * scale
		y := (float64(landmarks[ii+1]) - 0.5) * scale
		out[ii] = float32(x*cos + y*sin + 0.5)
		out[ii+1] = float32(-x*sin + y*cos + 0.5)
	}
	return img, out
}
