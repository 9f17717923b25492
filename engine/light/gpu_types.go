package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPULightSize is the size in bytes of one marshaled GPULight record.
const GPULightSize = 64

// GPULightSource is the canonical WGSL definition of the Light struct.
// Matches GPULight layout exactly (64 bytes, std430 aligned).
//
//go:embed assets/light.wgsl
var GPULightSource string

// GPULight is the GPU-aligned representation of a single clustered light.
// Matches the WGSL Light struct layout exactly (see GPULightSource).
// Size: 64 bytes (std430 / WGSL aligned).
type GPULight struct {
	Position    [3]float32 // offset  0: world-space position (apex for spot)
	LightType   uint32     // offset 12: 0 = point, 1 = spot
	Spectrum    [3]float32 // offset 16: color × intensity
	Range       float32    // offset 28: derived radius (point) or length (spot)
	Direction   [3]float32 // offset 32: unit cone axis (spot), unused (point)
	InnerCutoff float32    // offset 44: cos(inner half-angle)
	OuterCutoff float32    // offset 48: cos(outer half-angle)
	_pad        [3]uint32  // offset 52: padding to 64-byte alignment
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, GPULightSize)
	g.MarshalInto(buf)
	return buf
}

// MarshalInto serializes the GPULight into dst, which must hold at least
// GPULightSize bytes. The filler uses it to write records in place without
// allocating per light.
//
// Parameters:
//   - dst: the destination slice
func (g *GPULight) MarshalInto(dst []byte) {
	_ = dst[GPULightSize-1]
	putF32(dst[0:4], g.Position[0])
	putF32(dst[4:8], g.Position[1])
	putF32(dst[8:12], g.Position[2])
	binary.LittleEndian.PutUint32(dst[12:16], g.LightType)
	putF32(dst[16:20], g.Spectrum[0])
	putF32(dst[20:24], g.Spectrum[1])
	putF32(dst[24:28], g.Spectrum[2])
	putF32(dst[28:32], g.Range)
	putF32(dst[32:36], g.Direction[0])
	putF32(dst[36:40], g.Direction[1])
	putF32(dst[40:44], g.Direction[2])
	putF32(dst[44:48], g.InnerCutoff)
	putF32(dst[48:52], g.OuterCutoff)
	clear(dst[52:64]) // padding
}

// ToGPULight converts a Light into the GPU-aligned GPULight struct suitable for
// writing into the light storage buffer.
//
// Parameters:
//   - l: the Light to convert
//
// Returns:
//   - GPULight: the GPU-aligned representation
func ToGPULight(l Light) GPULight {
	return GPULight{
		Position:    l.Position(),
		LightType:   uint32(l.Type()),
		Spectrum:    l.Spectrum(),
		Range:       l.Range(),
		Direction:   l.Direction(),
		InnerCutoff: l.InnerCutoff(),
		OuterCutoff: l.OuterCutoff(),
	}
}

func putF32(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
}
