package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

// TempDir creates a temporary directory under dir and fails the test if it cannot.
func TempDir(t *testing.T, dir, pattern string) string {
	t.Helper()
	dir, err := os.MkdirTemp(dir, pattern)
	test.That(t, err, test.ShouldBeNil)
	return dir
}

// WriteFile writes data to name under dir and returns the full path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	test.That(t, os.WriteFile(path, data, 0o600), test.ShouldBeNil)
	return path
}

// TranslationPose returns a 3x4 pose with identity rotation at (x, y, z).
func TranslationPose(x, y, z float64) *mat.Dense {
	return mat.NewDense(3, 4, []float64{
		1, 0, 0, x,
		0, 1, 0, y,
		0, 0, 1, z,
	})
}

// PoseSlice flattens a 3x4 pose into the row-major layout stored in trajectory datasets.
func PoseSlice(g mat.Matrix) []float64 {
	out := make([]float64, 0, 12)
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			out = append(out, g.At(i, j))
		}
	}
	return out
}
