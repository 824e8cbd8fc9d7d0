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

// Package chestxray loads the chest X-ray landmark dataset: grayscale
// radiographs paired with fixed-length, ordered anatomical contour
// annotations, plus the deterministic cross-validation split over them.
package chestxray

import (
	"bufio"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math/rand"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/pkg/errors"

	"github.com/hybridgnet/landmarks/anatomy"
)

// Dataset yields batches of (image, landmarks) samples and implements
// train.Dataset. Each batch is one inputs tensor shaped
// [batch, size, size, 1] (grayscale in [0, 1]) and one labels tensor shaped
// [batch, numNodes, 2] (landmarks in normalized [0, 1) coordinates).
//
// Incomplete trailing batches are dropped so every yielded tensor has the
// same shape: with the tensor runtime a new shape means a new compiled
// graph.
type Dataset struct {
	name                    string
	imagesDir, landmarksDir string
	spec                    anatomy.Spec
	ids                     []string
	inputSize, batchSize    int

	shuffle *rand.Rand
	augment *Augmentation

	mu    sync.Mutex
	order []int
	next  int
}

// NewDataset creates a dataset over the given image identifiers. Images are
// read from imagesDir/<id> and landmarks from landmarksDir/<id>.txt (with
// the image extension stripped). Samples are yielded in list order until
// configured otherwise with WithShuffle.
func NewDataset(name, imagesDir, landmarksDir string, ids []string,
	spec anatomy.Spec, inputSize, batchSize int) *Dataset {
	ds := &Dataset{
		name:         name,
		imagesDir:    imagesDir,
		landmarksDir: landmarksDir,
		spec:         spec,
		ids:          ids,
		inputSize:    inputSize,
		batchSize:    batchSize,
	}
	ds.Reset()
	return ds
}

// WithShuffle reshuffles the sample order from rng at every Reset (that is,
// every epoch). It returns ds for chaining.
func (ds *Dataset) WithShuffle(rng *rand.Rand) *Dataset {
	ds.shuffle = rng
	ds.Reset()
	return ds
}

// WithAugmentation applies the given train-time augmentation to every
// yielded sample. It returns ds for chaining.
func (ds *Dataset) WithAugmentation(augment *Augmentation) *Dataset {
	ds.augment = augment
	return ds
}

// Name implements train.Dataset.
func (ds *Dataset) Name() string { return ds.name }

// NumBatches returns how many full batches one epoch yields.
func (ds *Dataset) NumBatches() int { return len(ds.ids) / ds.batchSize }

// Reset implements train.Dataset: it restarts the dataset and, for shuffled
// datasets, draws a new sample order.
func (ds *Dataset) Reset() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.next = 0
	if ds.order == nil {
		ds.order = make([]int, len(ds.ids))
		for ii := range ds.order {
			ds.order[ii] = ii
		}
	}
	if ds.shuffle != nil {
		ds.shuffle.Shuffle(len(ds.order), func(i, j int) {
			ds.order[i], ds.order[j] = ds.order[j], ds.order[i]
		})
	}
}

// Yield implements train.Dataset. Any read or parse failure is returned as
// an error and aborts the run: there are no per-batch retries.
func (ds *Dataset) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.next+ds.batchSize > len(ds.order) {
		return nil, nil, nil, io.EOF
	}
	batch := ds.order[ds.next : ds.next+ds.batchSize]
	ds.next += ds.batchSize

	batchImages := make([]image.Image, 0, ds.batchSize)
	batchLandmarks := make([][]float32, 0, ds.batchSize)
	for _, sampleIdx := range batch {
		img, landmarks, sampleErr := ds.loadSample(ds.ids[sampleIdx])
		if sampleErr != nil {
			return nil, nil, nil, sampleErr
		}
		if ds.augment != nil {
			img, landmarks = ds.augment.Apply(img, landmarks)
		}
		batchImages = append(batchImages, img)
		batchLandmarks = append(batchLandmarks, landmarks)
	}
	return ds, []*tensors.Tensor{ds.imagesToTensor(batchImages)}, []*tensors.Tensor{ds.landmarksToTensor(batchLandmarks)}, nil
}

// loadSample reads and resizes one radiograph and its landmark file.
func (ds *Dataset) loadSample(id string) (image.Image, []float32, error) {
	f, err := os.Open(path.Join(ds.imagesDir, id))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "reading image %q", id)
	}
	img, _, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "decoding image %q", id)
	}
	img = imaging.Resize(img, ds.inputSize, ds.inputSize, imaging.Linear)

	landmarks, err := ds.readLandmarks(strings.TrimSuffix(id, path.Ext(id)) + ".txt")
	if err != nil {
		return nil, nil, err
	}
	return img, landmarks, nil
}

// readLandmarks parses a landmark annotation: one "x y" pair per line, in
// normalized [0, 1) coordinates, in the fixed contour order of the anatomy.
func (ds *Dataset) readLandmarks(fileName string) ([]float32, error) {
	filePath := path.Join(ds.landmarksDir, fileName)
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading landmarks %q", filePath)
	}
	defer func() { _ = f.Close() }()

	landmarks := make([]float32, 0, 2*ds.spec.NumNodes())
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, errors.Errorf("landmarks %q: want \"x y\" per line, got %q", filePath, line)
		}
		for _, field := range fields {
			v, parseErr := strconv.ParseFloat(field, 32)
			if parseErr != nil {
				return nil, errors.Wrapf(parseErr, "landmarks %q", filePath)
			}
			landmarks = append(landmarks, float32(v))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading landmarks %q", filePath)
	}
	if len(landmarks) != 2*ds.spec.NumNodes() {
		return nil, errors.Errorf("landmarks %q: want %d points, got %d",
			filePath, ds.spec.NumNodes(), len(landmarks)/2)
	}
	return landmarks, nil
}

// imagesToTensor packs grayscale images into a [batch, size, size, 1]
// float32 tensor with values in [0, 1]. The types/tensors/images helper
// always emits RGB(A) channels; radiographs are single-channel, hence the
// direct conversion.
func (ds *Dataset) imagesToTensor(batch []image.Image) *tensors.Tensor {
	size := ds.inputSize
	flat := make([]float32, len(batch)*size*size)
	for imgIdx, img := range batch {
		base := imgIdx * size * size
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				gray := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
				flat[base+y*size+x] = float32(gray.Y) / 255
			}
		}
	}
	return tensors.FromFlatDataAndDimensions(flat, len(batch), size, size, 1)
}

// landmarksToTensor packs landmark vectors into a [batch, numNodes, 2]
// float32 tensor.
func (ds *Dataset) landmarksToTensor(batch [][]float32) *tensors.Tensor {
	numNodes := ds.spec.NumNodes()
	flat := make([]float32, 0, len(batch)*numNodes*2)
	for _, landmarks := range batch {
		flat = append(flat, landmarks...)
	}
	return tensors.FromFlatDataAndDimensions(flat, len(batch), numNodes, 2)
}
