package trajectory

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Marshal encodes the dataset in the layout ParseDataset reads, with doubles and packed
// repeated fields.
func (ds *Dataset) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, datasetCamera, protowire.BytesType)
	b = protowire.AppendBytes(b, ds.Camera.marshal())
	for _, p := range ds.Packets {
		b = protowire.AppendTag(b, datasetPackets, protowire.BytesType)
		b = protowire.AppendBytes(b, p.marshal())
	}
	return b
}

func (c Camera) marshal() []byte {
	var radtan []byte
	for i, v := range []float64{c.Fx, c.Fy, c.Cx, c.Cy, c.Distortion[0], c.Distortion[1], c.Distortion[2], c.Distortion[3]} {
		radtan = appendDouble(radtan, radtanFx+protowire.Number(i), v)
	}

	var b []byte
	b = protowire.AppendTag(b, cameraRows, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(c.Rows))
	b = protowire.AppendTag(b, cameraCols, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(c.Cols))
	b = protowire.AppendTag(b, cameraRadTan, protowire.BytesType)
	return protowire.AppendBytes(b, radtan)
}

func (p Packet) marshal() []byte {
	var b []byte
	b = appendDouble(b, packetTimestamp, p.Timestamp)
	b = appendPacked(b, packetGwc, p.Gwc)
	return appendPacked(b, packetWg, p.Wg)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendPacked(b []byte, num protowire.Number, vals []float64) []byte {
	if len(vals) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vals {
		packed = protowire.AppendFixed64(packed, math.Float64bits(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}
