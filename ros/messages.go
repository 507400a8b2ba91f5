package ros

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"

	"github.com/pkg/errors"

	"go.viam.com/tripletprep/rimage"
)

// Image encodings understood by ImageMessage, as named in sensor_msgs/image_encodings.h.
const (
	EncodingRGB8   = "rgb8"
	EncodingBGR8   = "bgr8"
	EncodingRGBA8  = "rgba8"
	EncodingBGRA8  = "bgra8"
	EncodingMono8  = "mono8"
	Encoding16UC1  = "16UC1"
	EncodingMono16 = "mono16"
)

// Stamp is a ROS time.
type Stamp struct {
	Secs  int64
	Nsecs int64
}

// Seconds returns the stamp as floating point seconds.
func (s Stamp) Seconds() float64 {
	return float64(s.Secs) + float64(s.Nsecs)*1e-9
}

// ImageMessage is a sensor_msgs/Image record as decoded from a bag, along with the time it was
// recorded at.
type ImageMessage struct {
	Meta Stamp
	Data struct {
		Header struct {
			Seq     int
			Stamp   Stamp
			FrameID string `json:"frame_id"`
		}
		Height      int
		Width       int
		Encoding    string
		IsBigendian uint8 `json:"is_bigendian"`
		Step        int
		Data        messageBytes
	}
}

// Timestamp returns the time the message was recorded into the bag, in seconds.
func (m *ImageMessage) Timestamp() float64 {
	return m.Meta.Seconds()
}

// ColorImage decodes an 8 bit color or mono image.
func (m *ImageMessage) ColorImage() (image.Image, error) {
	d := &m.Data
	var channels int
	switch d.Encoding {
	case EncodingRGB8, EncodingBGR8:
		channels = 3
	case EncodingRGBA8, EncodingBGRA8:
		channels = 4
	case EncodingMono8:
		channels = 1
	default:
		return nil, errors.Errorf("unsupported color encoding %q", d.Encoding)
	}
	if err := m.checkSize(channels); err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, d.Width, d.Height))
	for y := 0; y < d.Height; y++ {
		row := d.Data[y*d.Step:]
		for x := 0; x < d.Width; x++ {
			px := row[x*channels : (x+1)*channels]
			var c color.NRGBA
			switch d.Encoding {
			case EncodingRGB8:
				c = color.NRGBA{R: px[0], G: px[1], B: px[2], A: 255}
			case EncodingBGR8:
				c = color.NRGBA{R: px[2], G: px[1], B: px[0], A: 255}
			case EncodingRGBA8:
				c = color.NRGBA{R: px[0], G: px[1], B: px[2], A: px[3]}
			case EncodingBGRA8:
				c = color.NRGBA{R: px[2], G: px[1], B: px[0], A: px[3]}
			default:
				c = color.NRGBA{R: px[0], G: px[0], B: px[0], A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img, nil
}

// DepthMap decodes a 16 bit millimeter depth image into meters.
func (m *ImageMessage) DepthMap() (*rimage.DepthMap, error) {
	d := &m.Data
	if d.Encoding != Encoding16UC1 && d.Encoding != EncodingMono16 {
		return nil, errors.Errorf("unsupported depth encoding %q", d.Encoding)
	}
	if err := m.checkSize(2); err != nil {
		return nil, err
	}

	var order binary.ByteOrder = binary.LittleEndian
	if d.IsBigendian != 0 {
		order = binary.BigEndian
	}
	raw := make([]uint16, d.Width*d.Height)
	for y := 0; y < d.Height; y++ {
		row := d.Data[y*d.Step:]
		for x := 0; x < d.Width; x++ {
			raw[y*d.Width+x] = order.Uint16(row[2*x:])
		}
	}
	return rimage.NewDepthMapFromMillimeters(d.Width, d.Height, raw)
}

func (m *ImageMessage) checkSize(bytesPerPixel int) error {
	d := &m.Data
	if d.Width <= 0 || d.Height <= 0 {
		return errors.Errorf("invalid image size %dx%d", d.Width, d.Height)
	}
	if d.Step < d.Width*bytesPerPixel {
		return errors.Errorf("row step %d too small for %d %s pixels", d.Step, d.Width, d.Encoding)
	}
	if len(d.Data) < (d.Height-1)*d.Step+d.Width*bytesPerPixel {
		return errors.Errorf("image data has %d bytes, too short for %dx%d %s", len(d.Data), d.Width, d.Height, d.Encoding)
	}
	return nil
}

// messageBytes holds a uint8[] field, which may be serialized as base64 or as a list of numbers.
type messageBytes []byte

func (b *messageBytes) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return errors.Wrap(err, "cannot decode message bytes")
		}
		*b = decoded
		return nil
	}
	var nums []uint8
	if err := json.Unmarshal(data, &nums); err != nil {
		return errors.Wrap(err, "cannot decode message bytes")
	}
	*b = nums
	return nil
}
