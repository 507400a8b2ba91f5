package artifact

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/sbinet/npyio"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/tripletprep/logging"
	"go.viam.com/tripletprep/rimage"
	"go.viam.com/tripletprep/rimage/transform"
)

func solid(w, h int, c color.NRGBA) image.Image {
	return imaging.New(w, h, c)
}

func testRecord(t *testing.T, ts float64) Record {
	t.Helper()
	frame, err := rimage.ConcatHorizontal(
		solid(4, 2, color.NRGBA{R: 255, A: 255}),
		solid(4, 2, color.NRGBA{G: 255, A: 255}),
		solid(4, 2, color.NRGBA{B: 255, A: 255}),
	)
	test.That(t, err, test.ShouldBeNil)
	depth, err := rimage.NewDepthMapFromMillimeters(4, 2, []uint16{1500, 1500, 0, 2000, 1000, 1000, 1000, 1000})
	test.That(t, err, test.ShouldBeNil)

	rec := Record{Timestamp: ts, Color: frame, Depth: depth}
	for i := 0; i < 3; i++ {
		pose := mat.NewDense(3, 4, []float64{1, 0, 0, float64(i), 0, 1, 0, 0, 0, 0, 1, 0})
		rec.Poses[i] = pose
		rec.Gravity[i] = mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	}
	return rec
}

func TestNewWriterCreatesLayout(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	root := filepath.Join(t.TempDir(), "out")
	w, err := NewWriter(context.Background(), Options{OutputDir: root, Debug: true}, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() { test.That(t, w.Close(), test.ShouldBeNil) }()

	for _, dir := range []string{RGBDir, PoseDir, DepthDir, DebugDir} {
		info, err := os.Stat(filepath.Join(root, dir))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, info.IsDir(), test.ShouldBeTrue)
	}
	test.That(t, logs.FilterMessage("folder does not exist; creating one").Len(), test.ShouldEqual, 5)
	test.That(t, w.Manifest().RunID(), test.ShouldNotBeEmpty)
}

func TestPathsFor(t *testing.T) {
	w, err := NewWriter(context.Background(), Options{OutputDir: t.TempDir()}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer w.Close()

	paths := w.PathsFor(1234.56789)
	test.That(t, paths.RGB, test.ShouldEqual, filepath.Join(w.Root(), "rgb", "1234.5679.jpg"))
	test.That(t, paths.Pose, test.ShouldEqual, filepath.Join(w.Root(), "pose", "1234.5679.json"))
	test.That(t, paths.Depth, test.ShouldEqual, filepath.Join(w.Root(), "depth", "1234.5679.npy"))
}

func TestWriteIntrinsics(t *testing.T) {
	w, err := NewWriter(context.Background(), Options{OutputDir: t.TempDir()}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer w.Close()

	err = w.WriteIntrinsics(&transform.PinholeCameraIntrinsics{Width: 640, Height: 480, Fx: 500, Fy: 510, Ppx: 320, Ppy: 240})
	test.That(t, err, test.ShouldBeNil)

	f, err := os.Open(filepath.Join(w.Root(), IntrinsicsFilename))
	test.That(t, err, test.ShouldBeNil)
	defer f.Close()
	var k mat.Dense
	test.That(t, npyio.Read(f, &k), test.ShouldBeNil)
	rows, cols := k.Dims()
	test.That(t, []int{rows, cols}, test.ShouldResemble, []int{3, 3})
	test.That(t, k.RawMatrix().Data, test.ShouldResemble, []float64{500, 0, 320, 0, 510, 240, 0, 0, 1})

	test.That(t, w.WriteIntrinsics(nil), test.ShouldNotBeNil)
}

func TestWriteRecord(t *testing.T) {
	ctx := context.Background()
	w, err := NewWriter(ctx, Options{OutputDir: t.TempDir(), Debug: true}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer w.Close()

	rec := testRecord(t, 10.25)
	rec.Paths = w.PathsFor(rec.Timestamp)
	test.That(t, w.Write(ctx, rec), test.ShouldBeNil)

	img, err := imaging.Open(rec.Paths.RGB)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 12)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, 2)

	raw, err := os.ReadFile(rec.Paths.Pose)
	test.That(t, err, test.ShouldBeNil)
	var poses struct {
		Gwc [][][]float64 `json:"gwc"`
		Rg  [][][]float64 `json:"Rg"`
	}
	test.That(t, json.Unmarshal(raw, &poses), test.ShouldBeNil)
	test.That(t, len(poses.Gwc), test.ShouldEqual, 3)
	test.That(t, poses.Gwc[2][0], test.ShouldResemble, []float64{1, 0, 0, 2})
	test.That(t, poses.Rg[1][1], test.ShouldResemble, []float64{0, 1, 0})

	f, err := os.Open(rec.Paths.Depth)
	test.That(t, err, test.ShouldBeNil)
	defer f.Close()
	r, err := npyio.NewReader(f)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Header.Descr.Shape, test.ShouldResemble, []int{2, 4})
	depth := make([]float32, 8)
	test.That(t, r.Read(&depth), test.ShouldBeNil)
	test.That(t, depth[0], test.ShouldEqual, float32(1.5))
	test.That(t, depth[2], test.ShouldEqual, float32(0))

	panel, err := imaging.Open(filepath.Join(w.Root(), DebugDir, "10.2500.png"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, panel.Bounds().Dx(), test.ShouldEqual, 8)
	test.That(t, panel.Bounds().Dy(), test.ShouldEqual, 4)

	stems, err := w.Manifest().Committed(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stems, test.ShouldResemble, []string{"10.2500"})

	// no temporary files are left behind
	entries, err := os.ReadDir(filepath.Join(w.Root(), RGBDir))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(entries), test.ShouldEqual, 1)
}

func TestWriteRejectsBadPose(t *testing.T) {
	ctx := context.Background()
	w, err := NewWriter(ctx, Options{OutputDir: t.TempDir()}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer w.Close()

	rec := testRecord(t, 3)
	rec.Poses[1] = mat.NewDense(3, 3, nil)
	test.That(t, w.Write(ctx, rec), test.ShouldNotBeNil)

	stems, err := w.Manifest().Committed(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stems, test.ShouldBeEmpty)
	_, err = os.Stat(w.PathsFor(3).RGB)
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
}

func TestManifestOrdering(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ManifestFilename)
	m, err := OpenManifest(ctx, path, "out")
	test.That(t, err, test.ShouldBeNil)
	for _, stem := range []string{"10.0000", "9.5000", "100.0000", "9.5000"} {
		test.That(t, m.Commit(ctx, stem, Paths{RGB: stem}), test.ShouldBeNil)
	}
	stems, err := m.Committed(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stems, test.ShouldResemble, []string{"9.5000", "10.0000", "100.0000"})
	test.That(t, m.Close(), test.ShouldBeNil)

	// a second run appends to the same manifest
	m2, err := OpenManifest(ctx, path, "out")
	test.That(t, err, test.ShouldBeNil)
	defer m2.Close()
	test.That(t, m2.RunID(), test.ShouldNotEqual, m.RunID())
	stems, err = m2.Committed(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(stems), test.ShouldEqual, 3)
}
