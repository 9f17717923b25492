package cluster

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-cluster/common"
)

// GPUZBinSize is the size in bytes of one marshaled ZBin.
const GPUZBinSize = 8

// GPUClusterUniformsSize is the size in bytes of a marshaled GPUClusterUniforms.
const GPUClusterUniformsSize = 192

// GPUZBinSource is the canonical WGSL definition of the ZBin struct.
// Matches ZBin layout exactly (8 bytes).
//
//go:embed assets/zbin.wgsl
var GPUZBinSource string

// MarshalZBins serializes bins into dst, growing it when needed.
//
// Parameters:
//   - bins: the bins to serialize
//   - dst: a buffer to reuse; may be nil
//
// Returns:
//   - []byte: len(bins) × 8 bytes
func MarshalZBins(bins []ZBin, dst []byte) []byte {
	n := len(bins) * GPUZBinSize
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	for i, b := range bins {
		binary.LittleEndian.PutUint32(dst[i*8:i*8+4], b.MinIndex)
		binary.LittleEndian.PutUint32(dst[i*8+4:i*8+8], b.MaxIndex)
	}
	return dst
}

// MarshalIndices serializes an index list as little-endian uint32.
func MarshalIndices(indices []uint32, dst []byte) []byte {
	n := len(indices) * 4
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(dst[i*4:i*4+4], idx)
	}
	return dst
}

// GPUClusterUniformsSource is the canonical WGSL definition of the ClusterUniforms
// struct. Matches GPUClusterUniforms layout exactly (192 bytes, std140 aligned).
//
//go:embed assets/cluster_uniforms.wgsl
var GPUClusterUniformsSource string

// GPUClusterUniforms is the per-frame uniform block read by the tile proxy pass and
// the lit fragment shader to locate a fragment's Z-bin and tile.
// Size: 192 bytes.
//
// Layout:
//
//	mat4x4<f32> view            (64 bytes, offset   0)
//	mat4x4<f32> projection      (64 bytes, offset  64)
//	u32         screen_width    ( 4 bytes, offset 128)
//	u32         screen_height   ( 4 bytes, offset 132)
//	u32         tile_count_x    ( 4 bytes, offset 136)
//	u32         tile_count_y    ( 4 bytes, offset 140)
//	u32         tile_size       ( 4 bytes, offset 144)
//	u32         bin_count       ( 4 bytes, offset 148)
//	f32         bin_width       ( 4 bytes, offset 152)
//	f32         furthest_back   ( 4 bytes, offset 156)
//	u32         point_count     ( 4 bytes, offset 160)
//	u32         spot_count      ( 4 bytes, offset 164)
//	u32         point_words     ( 4 bytes, offset 168)
//	u32         spot_words      ( 4 bytes, offset 172)
//	f32         near            ( 4 bytes, offset 176)
//	f32         far             ( 4 bytes, offset 180)
//	u32         _pad0, _pad1    ( 8 bytes, offset 184)
type GPUClusterUniforms struct {
	View         [16]float32
	Projection   [16]float32
	ScreenWidth  uint32
	ScreenHeight uint32
	TileCountX   uint32
	TileCountY   uint32
	TileSize     uint32
	BinCount     uint32
	BinWidth     float32
	FurthestBack float32
	PointCount   uint32
	SpotCount    uint32
	PointWords   uint32
	SpotWords    uint32
	Near         float32
	Far          float32
	_pad         [2]uint32
}

// Size returns the size of the GPUClusterUniforms struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (192)
func (u *GPUClusterUniforms) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal serializes GPUClusterUniforms into a 192-byte little-endian buffer.
//
// Returns:
//   - []byte: 192-byte buffer ready for GPU upload
func (u *GPUClusterUniforms) Marshal() []byte {
	buf := make([]byte, GPUClusterUniformsSize)
	off := 0

	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(u.View[i]))
		off += 4
	}
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(u.Projection[i]))
		off += 4
	}
	for _, v := range [...]uint32{
		u.ScreenWidth, u.ScreenHeight,
		u.TileCountX, u.TileCountY, u.TileSize,
		u.BinCount, math.Float32bits(u.BinWidth), math.Float32bits(u.FurthestBack),
		u.PointCount, u.SpotCount, u.PointWords, u.SpotWords,
		math.Float32bits(u.Near), math.Float32bits(u.Far),
		0, 0,
	} {
		binary.LittleEndian.PutUint32(buf[off:off+4], v)
		off += 4
	}
	return buf
}

// TileUniforms returns the uniform block for a frame's tile proxy pass. The Z-bins
// are still being built when the proxies are drawn, so the bin fields are zero.
//
// Parameters:
//   - counts: the frame's counts; counts.Result must be set
//   - tileSize: tile edge in pixels
//
// Returns:
//   - GPUClusterUniforms: the uniform block without bin data
func TileUniforms(counts Counts, tileSize uint32) GPUClusterUniforms {
	view := counts.Result.View
	grid := NewTileGrid(view.ScreenWidth, view.ScreenHeight, tileSize)
	return GPUClusterUniforms{
		View:         [16]float32(view.View),
		Projection:   [16]float32(view.Projection),
		ScreenWidth:  view.ScreenWidth,
		ScreenHeight: view.ScreenHeight,
		TileCountX:   grid.TilesX,
		TileCountY:   grid.TilesY,
		TileSize:     grid.TileSize,
		PointCount:   counts.Point,
		SpotCount:    counts.Spot,
		PointWords:   common.CeilDiv(counts.Point, 32),
		SpotWords:    common.CeilDiv(counts.Spot, 32),
		Near:         view.Near,
		Far:          view.Far,
	}
}

// newClusterUniforms assembles the uniform block for a finished frame.
func newClusterUniforms(out *FrameOutput) GPUClusterUniforms {
	u := TileUniforms(Counts{
		Point:  uint32(len(out.PointIndices)),
		Spot:   uint32(len(out.SpotIndices)),
		Result: out.FillResult,
	}, out.Tiles.TileSize)
	u.BinCount = uint32(len(out.Bins))
	u.BinWidth = out.BinWidth
	u.FurthestBack = out.FurthestBack
	return u
}
