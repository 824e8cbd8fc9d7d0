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
	"bufio"
	"math/rand"
	"os"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// ShuffleSeed fixes the pseudo-random shuffle applied to the image list
// before the cross-validation split, so the folds are reproducible across
// runs and across fold indices.
const ShuffleSeed = 13

// NumFolds is the number of cross-validation folds.
const NumFolds = 5

// ReadImageList reads a newline-separated list of image identifiers.
func ReadImageList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading image list %q", path)
	}
	defer func() { _ = f.Close() }()
	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			ids = append(ids, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading image list %q", path)
	}
	return ids, nil
}

// Shuffle returns a deterministically shuffled copy of the image list,
// seeded with ShuffleSeed. The same input list always yields the same
// order.
func Shuffle(ids []string) []string {
	shuffled := slices.Clone(ids)
	rng := rand.New(rand.NewSource(ShuffleSeed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

// CrossVal partitions an already-shuffled image list into train/validation
// for the given fold in [1, NumFolds]. The validation slices of folds
// 1..NumFolds are non-overlapping and collectively cover the whole list
// exactly once.
func CrossVal(ids []string, fold int) (trainIDs, valIDs []string, err error) {
	if fold < 1 || fold > NumFolds {
		return nil, nil, errors.Errorf("fold must be in [1, %d], got %d", NumFolds, fold)
	}
	start := (fold - 1) * len(ids) / NumFolds
	end := fold * len(ids) / NumFolds
	valIDs = slices.Clone(ids[start:end])
	trainIDs = append(slices.Clone(ids[:start]), ids[end:]...)
	return trainIDs, valIDs, nil
}
