// Package artifact persists triplets to an output directory laid out as
//
//	K.npy               3x3 float64 camera matrix, written once per run
//	rgb/<ts>.jpg        previous, reference and next frames side by side
//	pose/<ts>.json      {"gwc": 3x3x4, "Rg": 3x3x3}
//	depth/<ts>.npy      reference depth in meters, float32, shape (rows, cols)
//	debug/<ts>.png      optional preview panel
//	manifest.db         committed triplets
//
// where <ts> is the reference timestamp printed with four decimals. Every file is written under a
// temporary name and renamed into place, and a triplet is committed to the manifest only after
// its three files exist.
package artifact

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"go.viam.com/tripletprep/logging"
	"go.viam.com/tripletprep/rimage"
	"go.viam.com/tripletprep/rimage/transform"
)

// Directory and file names inside the output directory.
const (
	IntrinsicsFilename = "K.npy"
	RGBDir             = "rgb"
	PoseDir            = "pose"
	DepthDir           = "depth"
	DebugDir           = "debug"
)

// Paths are the three destination files of one triplet.
type Paths struct {
	RGB   string
	Pose  string
	Depth string
}

// Stem formats a timestamp the way every artifact file is named.
func Stem(ts float64) string {
	return fmt.Sprintf("%.4f", ts)
}

// A Record is everything written for one triplet.
type Record struct {
	Timestamp float64
	// Color is the concatenated previous|reference|next image.
	Color   image.Image
	Poses   [3]*mat.Dense
	Gravity [3]*mat.Dense
	Depth   *rimage.DepthMap
	Paths   Paths
}

// Options configure a Writer.
type Options struct {
	// OutputDir is the destination root. Empty means a fresh temporary directory in the working
	// directory.
	OutputDir   string
	JPEGQuality int
	// Debug also renders a preview panel per triplet.
	Debug bool
}

// A Writer lays out triplets under one output directory.
type Writer struct {
	root     string
	opts     Options
	manifest *Manifest
	logger   logging.Logger
}

// NewWriter prepares the output directory, creating missing folders, and opens its manifest.
func NewWriter(ctx context.Context, opts Options, logger logging.Logger) (*Writer, error) {
	root := opts.OutputDir
	if root == "" {
		dir, err := os.MkdirTemp(".", "tripletprep-")
		if err != nil {
			return nil, errors.Wrap(err, "cannot create temporary output directory")
		}
		root = dir
		logger.Infow("no output directory given, using a temporary one", "dir", root)
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = rimage.DefaultJPEGQuality
	}

	dirs := []string{root, filepath.Join(root, RGBDir), filepath.Join(root, PoseDir), filepath.Join(root, DepthDir)}
	if opts.Debug {
		dirs = append(dirs, filepath.Join(root, DebugDir))
	}
	for _, dir := range dirs {
		if err := ensureDir(dir, logger); err != nil {
			return nil, err
		}
	}

	manifest, err := OpenManifest(ctx, filepath.Join(root, ManifestFilename), root)
	if err != nil {
		return nil, err
	}
	logger.Debugw("opened manifest", "run_id", manifest.RunID())
	return &Writer{root: root, opts: opts, manifest: manifest, logger: logger}, nil
}

func ensureDir(dir string, logger logging.Logger) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return errors.Errorf("%q exists and is not a directory", dir)
	case !os.IsNotExist(err):
		return errors.Wrapf(err, "cannot stat %q", dir)
	}
	logger.Warnw("folder does not exist; creating one", "dir", dir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.Wrapf(err, "cannot create %q", dir)
	}
	return nil
}

// Root is the output directory.
func (w *Writer) Root() string {
	return w.root
}

// Manifest is the manifest triplets are committed to.
func (w *Writer) Manifest() *Manifest {
	return w.manifest
}

// PathsFor returns the destination files for the triplet whose reference time is ts.
func (w *Writer) PathsFor(ts float64) Paths {
	stem := Stem(ts)
	return Paths{
		RGB:   filepath.Join(w.root, RGBDir, stem+".jpg"),
		Pose:  filepath.Join(w.root, PoseDir, stem+".json"),
		Depth: filepath.Join(w.root, DepthDir, stem+".npy"),
	}
}

// WriteIntrinsics writes the camera matrix K.
func (w *Writer) WriteIntrinsics(intrinsics *transform.PinholeCameraIntrinsics) error {
	if intrinsics == nil {
		return transform.NewNoIntrinsicsError("cannot write camera matrix")
	}
	return writeAtomic(filepath.Join(w.root, IntrinsicsFilename), func(out io.Writer) error {
		return rimage.WriteMatrixNPY(out, intrinsics.Matrix())
	})
}

// Write persists the three files of rec and then commits it to the manifest.
func (w *Writer) Write(ctx context.Context, rec Record) error {
	if rec.Color == nil || rec.Depth == nil {
		return errors.Errorf("incomplete record %s", Stem(rec.Timestamp))
	}
	paths := rec.Paths
	if paths == (Paths{}) {
		paths = w.PathsFor(rec.Timestamp)
	}

	poseJSON, err := encodePoses(rec.Poses, rec.Gravity)
	if err != nil {
		return errors.Wrapf(err, "cannot encode poses of %s", Stem(rec.Timestamp))
	}

	if err := writeAtomic(paths.RGB, func(out io.Writer) error {
		return rimage.EncodeImage(out, rec.Color, filepath.Ext(paths.RGB), w.opts.JPEGQuality)
	}); err != nil {
		return err
	}
	if err := writeAtomic(paths.Pose, func(out io.Writer) error {
		_, err := out.Write(poseJSON)
		return err
	}); err != nil {
		return err
	}
	if err := writeAtomic(paths.Depth, rec.Depth.WriteDepthNPY); err != nil {
		return err
	}

	if err := w.manifest.Commit(ctx, Stem(rec.Timestamp), paths); err != nil {
		return err
	}
	if w.opts.Debug {
		if err := w.WriteDebugPanel(rec); err != nil {
			w.logger.Warnw("cannot write debug panel", "ts", Stem(rec.Timestamp), "error", err)
		}
	}
	return nil
}

// WriteDebugPanel renders the reference frame next to its colored depth on top, and the
// previous frame next to the next frame below.
func (w *Writer) WriteDebugPanel(rec Record) error {
	frames, err := rimage.SplitHorizontal(rec.Color, 3)
	if err != nil {
		return err
	}
	prev, mid, next := frames[0], frames[1], frames[2]
	fw, fh := mid.Bounds().Dx(), mid.Bounds().Dy()

	depth := rec.Depth.ToPrettyPicture(0, 0)
	if depth.Bounds().Dx() != fw || depth.Bounds().Dy() != fh {
		depth = imaging.Resize(depth, fw, fh, imaging.NearestNeighbor)
	}

	panel := imaging.New(2*fw, 2*fh, color.NRGBA{A: 255})
	panel = imaging.Paste(panel, mid, image.Pt(0, 0))
	panel = imaging.Paste(panel, depth, image.Pt(fw, 0))
	panel = imaging.Paste(panel, prev, image.Pt(0, fh))
	panel = imaging.Paste(panel, next, image.Pt(fw, fh))

	path := filepath.Join(w.root, DebugDir, Stem(rec.Timestamp)+".png")
	return writeAtomic(path, func(out io.Writer) error {
		return rimage.EncodeImage(out, panel, ".png", 0)
	})
}

// Close closes the manifest.
func (w *Writer) Close() error {
	return w.manifest.Close()
}

// writeAtomic writes through fn to a temporary file next to path, then renames it over path.
func writeAtomic(path string, fn func(io.Writer) error) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrapf(err, "cannot create temporary file for %q", path)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			utils.UncheckedErrorFunc(func() error { return os.Remove(tmp) })
		}
	}()

	if err := fn(f); err != nil {
		return errors.Wrapf(multierr.Combine(err, f.Close()), "cannot write %q", path)
	}
	if err := multierr.Combine(f.Sync(), f.Close()); err != nil {
		return errors.Wrapf(err, "cannot flush %q", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "cannot move %q into place", path)
	}
	return nil
}

// encodePoses renders the stacked poses and gravity rotations as JSON.
func encodePoses(poses, gravity [3]*mat.Dense) ([]byte, error) {
	gwc := make([]interface{}, 0, 3)
	rg := make([]interface{}, 0, 3)
	for i := range poses {
		if poses[i] == nil || gravity[i] == nil {
			return nil, errors.Errorf("missing pose %d", i)
		}
		r, c := poses[i].Dims()
		if r < 3 || c != 4 {
			return nil, errors.Errorf("pose %d is %dx%d", i, r, c)
		}
		gwc = append(gwc, matrixValue(poses[i].Slice(0, 3, 0, 4)))
		rg = append(rg, matrixValue(gravity[i]))
	}
	st, err := structpb.NewStruct(map[string]interface{}{"gwc": gwc, "Rg": rg})
	if err != nil {
		return nil, err
	}
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(st)
}

func matrixValue(m mat.Matrix) []interface{} {
	r, c := m.Dims()
	rows := make([]interface{}, r)
	for i := 0; i < r; i++ {
		row := make([]interface{}, c)
		for j := 0; j < c; j++ {
			row[j] = m.At(i, j)
		}
		rows[i] = row
	}
	return rows
}
