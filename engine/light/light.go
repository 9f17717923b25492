package light

import (
	"math"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/go-gl/mathgl/mgl32"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypePoint represents a light that emits in all directions from a position.
	// Its influence volume is a sphere whose radius is derived from its spectrum.
	LightTypePoint LightType = iota

	// LightTypeSpot represents a light that emits in a cone from a position along a direction.
	// Its influence volume is a cone of the derived length, bounded by the outer cutoff.
	LightTypeSpot
)

// LightTypeCount is the number of clustered light types. Per-type index lists and
// tile bitmask partitions are sized by it.
const LightTypeCount = 2

func (t LightType) String() string {
	switch t {
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	}
	return "unknown"
}

// NegligibleContribution is the spectrum magnitude below which a light is treated as
// contributing nothing. A light's influence radius is the distance at which its
// inverse-square falloff reaches this threshold.
const NegligibleContribution float32 = 0.01

// WorldUp is the world-space up axis. Spot directions are kept away from it.
var WorldUp = mgl32.Vec3{0, 1, 0}

// polarLimit is the largest |dot(direction, WorldUp)| a spot direction may have.
const polarLimit = 0.9999

// Spot cone limits in degrees. The depth and bounding-sphere math needs the outer
// half-angle strictly inside (0, 90).
const (
	minConeDeg = 0.1
	maxConeDeg = 89.0
)

// BoundingSphere encloses a light's full influence volume.
type BoundingSphere struct {
	Center mgl32.Vec3
	Radius float32
}

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	lightType   LightType
	position    mgl32.Vec3
	direction   mgl32.Vec3
	color       mgl32.Vec3
	intensity   float32
	innerCutoff float32 // cos(inner half-angle)
	outerCutoff float32 // cos(outer half-angle)
	enabled     bool

	// derived by derive()
	spectrum mgl32.Vec3
	radius   float32
	sphere   BoundingSphere
}

// Light is a read-only view of a point or spot light.
//
// Lights are owned by a Registry. Their influence radius is never set directly; it
// is derived from color and intensity (see NegligibleContribution), and spot
// directions are corrected away from the poles when the light is built.
type Light interface {
	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: point or spot
	Type() LightType

	// Position returns the world-space position (the apex for spot lights).
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// Direction returns the normalized cone axis of a spot light. Point lights
	// report the default direction.
	//
	// Returns:
	//   - mgl32.Vec3: the unit direction
	Direction() mgl32.Vec3

	// Color returns the RGB color of the light.
	//
	// Returns:
	//   - mgl32.Vec3: the color
	Color() mgl32.Vec3

	// Intensity returns the scalar intensity multiplier.
	//
	// Returns:
	//   - float32: the intensity
	Intensity() float32

	// Spectrum returns color × intensity.
	//
	// Returns:
	//   - mgl32.Vec3: the spectrum
	Spectrum() mgl32.Vec3

	// Range returns the derived influence radius (point) or length (spot).
	//
	// Returns:
	//   - float32: the influence distance
	Range() float32

	// InnerCutoff returns cos(inner half-angle) for spot lights.
	//
	// Returns:
	//   - float32: the inner cutoff cosine
	InnerCutoff() float32

	// OuterCutoff returns cos(outer half-angle) for spot lights.
	//
	// Returns:
	//   - float32: the outer cutoff cosine
	OuterCutoff() float32

	// Enabled reports whether the light takes part in clustering.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// BoundingSphere returns the sphere enclosing the light's influence volume.
	//
	// Returns:
	//   - BoundingSphere: the bounding sphere
	BoundingSphere() BoundingSphere
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the specified type with sensible defaults and
// any provided options applied.
//
// Parameters:
//   - lightType: the kind of light to create (point or spot)
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		lightType:   lightType,
		direction:   mgl32.Vec3{0, -1, 0},
		color:       mgl32.Vec3{1, 1, 1},
		intensity:   1.0,
		innerCutoff: cosDeg(25),
		outerCutoff: cosDeg(35),
		enabled:     true,
	}
	l.apply(opts...)
	return l
}

// NewPointLight is shorthand for NewLight(LightTypePoint, opts...).
func NewPointLight(opts ...LightBuilderOption) Light {
	return NewLight(LightTypePoint, opts...)
}

// NewSpotLight is shorthand for NewLight(LightTypeSpot, opts...).
func NewSpotLight(opts ...LightBuilderOption) Light {
	return NewLight(LightTypeSpot, opts...)
}

func (l *lightImpl) Type() LightType                { return l.lightType }
func (l *lightImpl) Position() mgl32.Vec3           { return l.position }
func (l *lightImpl) Direction() mgl32.Vec3          { return l.direction }
func (l *lightImpl) Color() mgl32.Vec3              { return l.color }
func (l *lightImpl) Intensity() float32             { return l.intensity }
func (l *lightImpl) Spectrum() mgl32.Vec3           { return l.spectrum }
func (l *lightImpl) Range() float32                 { return l.radius }
func (l *lightImpl) InnerCutoff() float32           { return l.innerCutoff }
func (l *lightImpl) OuterCutoff() float32           { return l.outerCutoff }
func (l *lightImpl) Enabled() bool                  { return l.enabled }
func (l *lightImpl) BoundingSphere() BoundingSphere { return l.sphere }

// apply runs the options and recomputes every derived field.
func (l *lightImpl) apply(opts ...LightBuilderOption) {
	for _, opt := range opts {
		opt(l)
	}
	l.derive()
}

// clone returns an independent copy of l.
func (l *lightImpl) clone() *lightImpl {
	c := *l
	return &c
}

// derive recomputes the spectrum, influence radius, corrected direction and
// bounding sphere.
func (l *lightImpl) derive() {
	l.spectrum = l.color.Mul(l.intensity)
	l.radius = InfluenceRadius(l.spectrum)
	l.direction = clampFromPoles(l.direction)
	if l.innerCutoff < l.outerCutoff {
		l.innerCutoff = l.outerCutoff
	}

	switch l.lightType {
	case LightTypeSpot:
		l.sphere = coneBoundingSphere(l.position, l.direction, l.radius, l.outerCutoff)
	default:
		l.sphere = BoundingSphere{Center: l.position, Radius: l.radius}
	}
}

// fromLight copies any Light implementation into a registry-owned lightImpl.
func fromLight(src Light) *lightImpl {
	if impl, ok := src.(*lightImpl); ok {
		return impl.clone()
	}
	l := &lightImpl{
		lightType:   src.Type(),
		position:    src.Position(),
		direction:   src.Direction(),
		color:       src.Color(),
		intensity:   src.Intensity(),
		innerCutoff: src.InnerCutoff(),
		outerCutoff: src.OuterCutoff(),
		enabled:     src.Enabled(),
	}
	l.derive()
	return l
}

// InfluenceRadius returns the distance at which a light of the given spectrum falls
// below NegligibleContribution under inverse-square attenuation.
//
// Parameters:
//   - spectrum: color × intensity
//
// Returns:
//   - float32: the influence radius (0 for a black light)
func InfluenceRadius(spectrum mgl32.Vec3) float32 {
	peak := common.MaxComponent(spectrum)
	if peak <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(peak / NegligibleContribution)))
}

// SpectrumForRadius returns the peak spectrum value whose influence radius is r.
// It is the inverse of InfluenceRadius and is handy for placing lights by size.
//
// Parameters:
//   - r: the desired influence radius
//
// Returns:
//   - float32: the spectrum peak
func SpectrumForRadius(r float32) float32 {
	return r * r * NegligibleContribution
}

// clampFromPoles normalizes d and tilts it away from WorldUp so that no spot axis is
// (anti)parallel to the world up vector. A zero vector becomes a near-downward axis.
func clampFromPoles(d mgl32.Vec3) mgl32.Vec3 {
	if d.LenSqr() == 0 {
		d = mgl32.Vec3{0, -1, 0}
	}
	d = d.Normalize()

	up := d.Dot(WorldUp)
	if mgl32.Abs(up) <= polarLimit {
		return d
	}

	// Keep the azimuth when there is one, otherwise lean towards +X.
	horizontal := d.Sub(WorldUp.Mul(up))
	if horizontal.LenSqr() < 1e-12 {
		horizontal = mgl32.Vec3{1, 0, 0}
	}
	horizontal = horizontal.Normalize()

	sinLimit := float32(math.Sqrt(1 - polarLimit*polarLimit))
	sign := float32(1)
	if up < 0 {
		sign = -1
	}
	return WorldUp.Mul(sign * polarLimit).Add(horizontal.Mul(sinLimit)).Normalize()
}

// coneBoundingSphere returns the smallest of the two classic enclosing spheres for
// a cone with apex p, unit axis d, slant length length and outer cutoff cosine.
func coneBoundingSphere(p, d mgl32.Vec3, length, cutoff float32) BoundingSphere {
	cosA := cutoff
	sinA := float32(math.Sqrt(float64(max(0, 1-cosA*cosA))))
	if cosA < math.Sqrt2/2 {
		// Wide cone: the cap disc dominates.
		return BoundingSphere{
			Center: p.Add(d.Mul(length * cosA)),
			Radius: length * sinA,
		}
	}
	r := length / (2 * cosA)
	return BoundingSphere{Center: p.Add(d.Mul(r)), Radius: r}
}

// cosDeg converts an angle in degrees to the cosine of that angle in radians.
func cosDeg(deg float32) float32 {
	return float32(math.Cos(float64(deg) * math.Pi / 180.0))
}
