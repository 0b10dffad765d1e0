// Package testutils writes small Nerfies captures for tests.
package testutils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

// WriteCapture writes a small capture under root with one camera per id. Frame i has warp id
// i, identity orientation, position (i, 0, 0), focal length 100 and a 200x100 image. Images are
// not written. When valIDs is empty dataset.json has no split and the every-fourth rule applies.
func WriteCapture(tb testing.TB, root string, ids, trainIDs, valIDs []string) {
	tb.Helper()
	writeJSON(tb, filepath.Join(root, "scene.json"), map[string]interface{}{
		"scale":  2,
		"center": []float64{1, 0, 0},
		"near":   0.1,
		"far":    5,
	})
	writeJSON(tb, filepath.Join(root, "dataset.json"), map[string]interface{}{
		"count":     len(ids),
		"ids":       ids,
		"train_ids": trainIDs,
		"val_ids":   valIDs,
	})
	metadata := map[string]interface{}{}
	test.That(tb, os.MkdirAll(filepath.Join(root, "camera"), 0o750), test.ShouldBeNil)
	for i, id := range ids {
		metadata[id] = map[string]int{"warp_id": i, "camera_id": i % 2}
		writeJSON(tb, filepath.Join(root, "camera", id+".json"), map[string]interface{}{
			"orientation":        [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
			"position":           []float64{float64(i), 0, 0},
			"focal_length":       100,
			"principal_point":    []float64{100, 50},
			"image_size":         []float64{200, 100},
			"pixel_aspect_ratio": 1,
		})
	}
	writeJSON(tb, filepath.Join(root, "metadata.json"), metadata)
}

func writeJSON(tb testing.TB, path string, v interface{}) {
	tb.Helper()
	data, err := json.Marshal(v)
	test.That(tb, err, test.ShouldBeNil)
	test.That(tb, os.WriteFile(path, data, 0o600), test.ShouldBeNil)
}
