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
	"encoding/json"
	"os"
	"path"

	"github.com/gomlx/gomlx/ui/plots"
	"github.com/pkg/errors"
)

// ScalarLog appends per-epoch metric values as plots.Point JSON lines to the
// run directory, one object per line, so interrupted runs keep their history
// and plotting tools can tail the file.
type ScalarLog struct {
	f   *os.File
	enc *json.Encoder
}

// NewScalarLog opens (appending) the plot points file under dir.
func NewScalarLog(dir string) (*ScalarLog, error) {
	filePath := path.Join(dir, plots.TrainingPlotFileName)
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0664)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open scalar log %q", filePath)
	}
	return &ScalarLog{f: f, enc: json.NewEncoder(f)}, nil
}

// Add records one metric value for the given epoch.
func (l *ScalarLog) Add(name, short, metricType string, epoch int, value float64) error {
	point := plots.Point{
		MetricName: name,
		Short:      short,
		MetricType: metricType,
		Step:       float64(epoch),
		Value:      value,
	}
	if err := l.enc.Encode(point); err != nil {
		return errors.Wrapf(err, "failed to append metric %q", name)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (l *ScalarLog) Close() error {
	return errors.Wrapf(l.f.Close(), "failed to close scalar log")
}
