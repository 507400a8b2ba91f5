// Package trajectory reads the dataset file written by the visual-inertial estimator: the camera
// model followed by one packet per estimated frame.
//
// The file is a protobuf encoded message with the layout
//
//	message Dataset { Camera camera = 1; repeated Packet packets = 2; }
//	message Camera  { int32 rows = 1; int32 cols = 2; RadTan radtan = 3; }
//	message RadTan  { double fx = 1; double fy = 2; double cx = 3; double cy = 4;
//	                  double k1 = 5; double k2 = 6; double p1 = 7; double p2 = 8; }
//	message Packet  { double ts = 1; repeated double gwc = 2; repeated double wg = 3; }
//
// Numbers may be encoded as float or double, and repeated fields packed or not. Unknown fields,
// such as per packet feature tracks, are skipped.
package trajectory

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"google.golang.org/protobuf/encoding/protowire"

	"go.viam.com/tripletprep/rimage/transform"
	"go.viam.com/tripletprep/spatialmath"
)

// ErrMalformedDataset wraps every decoding failure.
var ErrMalformedDataset = errors.New("malformed trajectory dataset")

const (
	datasetCamera  protowire.Number = 1
	datasetPackets protowire.Number = 2

	cameraRows   protowire.Number = 1
	cameraCols   protowire.Number = 2
	cameraRadTan protowire.Number = 3

	radtanFx protowire.Number = 1
	radtanFy protowire.Number = 2
	radtanCx protowire.Number = 3
	radtanCy protowire.Number = 4
	radtanK1 protowire.Number = 5
	radtanP2 protowire.Number = 8

	packetTimestamp protowire.Number = 1
	packetGwc       protowire.Number = 2
	packetWg        protowire.Number = 3

	gravityLength = 2
)

// Camera is the pinhole plus radial-tangential camera model of the session.
type Camera struct {
	Rows int
	Cols int
	Fx   float64
	Fy   float64
	Cx   float64
	Cy   float64
	// Distortion holds k1, k2, p1, p2. It is carried but not applied.
	Distortion [4]float64
}

// Intrinsics returns the pinhole part of the camera model.
func (c Camera) Intrinsics() *transform.PinholeCameraIntrinsics {
	return &transform.PinholeCameraIntrinsics{
		Width:  c.Cols,
		Height: c.Rows,
		Fx:     c.Fx,
		Fy:     c.Fy,
		Ppx:    c.Cx,
		Ppy:    c.Cy,
	}
}

// Packet is one estimated frame: its time, its camera to world pose and its gravity tilt.
type Packet struct {
	Timestamp float64
	Gwc       []float64
	Wg        []float64
}

// Pose returns the packet's 3x4 camera to world pose.
func (p Packet) Pose() (*mat.Dense, error) {
	g, err := spatialmath.NewPoseFromSlice(p.Gwc)
	if err != nil {
		return nil, errors.Wrapf(err, "packet at %.4f", p.Timestamp)
	}
	return g, nil
}

// GravityAlignment returns the rotation aligning the packet's gravity estimate to [0, 0, 1].
func (p Packet) GravityAlignment() (*mat.Dense, error) {
	rg, err := spatialmath.NewGravityAlignment(p.Wg)
	if err != nil {
		return nil, errors.Wrapf(err, "packet at %.4f", p.Timestamp)
	}
	return rg, nil
}

// Dataset is the decoded estimator output.
type Dataset struct {
	Camera  Camera
	Packets []Packet
}

// ReadDataset reads and decodes the dataset file at path.
func ReadDataset(path string) (*Dataset, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read trajectory dataset")
	}
	ds, err := ParseDataset(data)
	if err != nil {
		return nil, errors.Wrapf(err, "in %s", path)
	}
	return ds, nil
}

// ParseDataset decodes a serialized dataset.
func ParseDataset(b []byte) (*Dataset, error) {
	ds := &Dataset{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch {
		case num == datasetCamera && typ == protowire.BytesType:
			msg, n := protowire.ConsumeBytes(v)
			if n < 0 {
				return n, nil
			}
			cam, err := parseCamera(msg)
			if err != nil {
				return 0, err
			}
			ds.Camera = cam
			return n, nil
		case num == datasetPackets && typ == protowire.BytesType:
			msg, n := protowire.ConsumeBytes(v)
			if n < 0 {
				return n, nil
			}
			p, err := parsePacket(msg)
			if err != nil {
				return 0, errors.Wrapf(err, "packet %d", len(ds.Packets))
			}
			ds.Packets = append(ds.Packets, p)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, v), nil
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func parseCamera(b []byte) (Camera, error) {
	var cam Camera
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case cameraRows, cameraCols:
			val, n := consumeInt(typ, v)
			if num == cameraRows {
				cam.Rows = int(val)
			} else {
				cam.Cols = int(val)
			}
			return n, nil
		case cameraRadTan:
			if typ != protowire.BytesType {
				break
			}
			msg, n := protowire.ConsumeBytes(v)
			if n < 0 {
				return n, nil
			}
			return n, parseRadTan(msg, &cam)
		}
		return protowire.ConsumeFieldValue(num, typ, v), nil
	})
	return cam, err
}

func parseRadTan(b []byte, cam *Camera) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num < radtanFx || num > radtanP2 {
			return protowire.ConsumeFieldValue(num, typ, v), nil
		}
		val, n := consumeFloat(typ, v)
		if n < 0 {
			return n, nil
		}
		switch num {
		case radtanFx:
			cam.Fx = val
		case radtanFy:
			cam.Fy = val
		case radtanCx:
			cam.Cx = val
		case radtanCy:
			cam.Cy = val
		default:
			cam.Distortion[num-radtanK1] = val
		}
		return n, nil
	})
}

func parsePacket(b []byte) (Packet, error) {
	var p Packet
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case packetTimestamp:
			val, n := consumeFloat(typ, v)
			p.Timestamp = val
			return n, nil
		case packetGwc:
			vals, n := consumeFloats(typ, v, spatialmath.PoseLength)
			p.Gwc = append(p.Gwc, vals...)
			return n, nil
		case packetWg:
			vals, n := consumeFloats(typ, v, gravityLength)
			p.Wg = append(p.Wg, vals...)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, v), nil
	})
	return p, err
}

// walkFields calls fn for each field of the message b. fn consumes the field value from v and
// returns how many bytes it used, or a negative protowire error code.
func walkFields(b []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrapf(ErrMalformedDataset, "bad tag: %v", protowire.ParseError(n))
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			return errors.Wrapf(ErrMalformedDataset, "field %d: %v", num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}

func consumeInt(typ protowire.Type, b []byte) (int64, int) {
	switch typ {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(b)
		return int64(v), n
	case protowire.Fixed32Type:
		v, n := protowire.ConsumeFixed32(b)
		return int64(int32(v)), n
	case protowire.Fixed64Type:
		v, n := protowire.ConsumeFixed64(b)
		return int64(v), n
	default:
		return 0, protowire.ConsumeFieldValue(0, typ, b)
	}
}

func consumeFloat(typ protowire.Type, b []byte) (float64, int) {
	switch typ {
	case protowire.Fixed32Type:
		v, n := protowire.ConsumeFixed32(b)
		return float64(math.Float32frombits(v)), n
	case protowire.Fixed64Type:
		v, n := protowire.ConsumeFixed64(b)
		return math.Float64frombits(v), n
	default:
		return 0, protowire.ConsumeFieldValue(0, typ, b)
	}
}

// consumeFloats reads one unpacked value or a packed run of want values. A packed run holds
// doubles or floats, told apart by its length.
func consumeFloats(typ protowire.Type, b []byte, want int) ([]float64, int) {
	if typ != protowire.BytesType {
		v, n := consumeFloat(typ, b)
		if n < 0 {
			return nil, n
		}
		return []float64{v}, n
	}
	packed, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, n
	}
	var vals []float64
	switch len(packed) {
	case want * 8:
		for i := 0; i < len(packed); i += 8 {
			v, _ := protowire.ConsumeFixed64(packed[i:])
			vals = append(vals, math.Float64frombits(v))
		}
	case want * 4:
		for i := 0; i < len(packed); i += 4 {
			v, _ := protowire.ConsumeFixed32(packed[i:])
			vals = append(vals, float64(math.Float32frombits(v)))
		}
	default:
		return nil, -1
	}
	return vals, n
}
