package common

// LaneWidth is the number of elements processed together by Float4 operations.
const LaneWidth = 4

// Float4 is a 4-wide float lane. Algorithms that work on structure-of-arrays data
// are written against Float4 so that the vectorization strategy (plain Go loops the
// compiler can unroll today) stays separate from the algorithm.
type Float4 [LaneWidth]float32

// Mask4 holds one bit per lane of a Float4 comparison; bit i is lane i.
type Mask4 uint8

// maskAll has every lane bit set.
const maskAll Mask4 = 1<<LaneWidth - 1

// PadToLanes rounds n up to a multiple of LaneWidth.
//
// Parameters:
//   - n: the element count
//
// Returns:
//   - int: the padded element count
func PadToLanes(n int) int {
	return CeilDiv(n, LaneWidth) * LaneWidth
}

// Splat returns a lane with every element set to v.
//
// Parameters:
//   - v: the value to broadcast
//
// Returns:
//   - Float4: {v, v, v, v}
func Splat(v float32) Float4 {
	return Float4{v, v, v, v}
}

// Load4 reads four consecutive elements starting at i. The slice must hold at least
// i+4 elements; SoA buffers are padded with PadToLanes for this reason.
//
// Parameters:
//   - s: the source slice
//   - i: the first element index
//
// Returns:
//   - Float4: s[i:i+4] as a lane
func Load4(s []float32, i int) Float4 {
	_ = s[i+3]
	return Float4{s[i], s[i+1], s[i+2], s[i+3]}
}

func (a Float4) Add(b Float4) Float4 {
	return Float4{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

func (a Float4) Sub(b Float4) Float4 {
	return Float4{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
}

func (a Float4) Mul(b Float4) Float4 {
	return Float4{a[0] * b[0], a[1] * b[1], a[2] * b[2], a[3] * b[3]}
}

// MulAdd returns a*b + c per lane.
func (a Float4) MulAdd(b, c Float4) Float4 {
	return Float4{a[0]*b[0] + c[0], a[1]*b[1] + c[1], a[2]*b[2] + c[2], a[3]*b[3] + c[3]}
}

func (a Float4) Neg() Float4 {
	return Float4{-a[0], -a[1], -a[2], -a[3]}
}

// Less returns a mask with lane i set when a[i] < b[i].
func (a Float4) Less(b Float4) Mask4 {
	var m Mask4
	for i := range LaneWidth {
		if a[i] < b[i] {
			m |= 1 << i
		}
	}
	return m
}

func (m Mask4) Or(o Mask4) Mask4  { return m | o }
func (m Mask4) And(o Mask4) Mask4 { return m & o }
func (m Mask4) Not() Mask4        { return ^m & maskAll }

// Lane reports whether lane i is set.
func (m Mask4) Lane(i int) bool { return m&(1<<i) != 0 }

// Any reports whether at least one lane is set.
func (m Mask4) Any() bool { return m&maskAll != 0 }

// FirstN returns a mask with the lowest n lanes set (n is clamped to [0, 4]).
func FirstN(n int) Mask4 {
	n = ClampValue(n, 0, LaneWidth)
	return Mask4(1<<n - 1)
}
