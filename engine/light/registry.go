package light

import (
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/google/uuid"
)

// DefaultMaxLights is the registry capacity used when WithMaxLights is not given.
// Every per-frame clustering buffer is sized from it.
const DefaultMaxLights = 1024

// ErrUnknownLight is returned when a handle does not name a light in the registry.
var ErrUnknownLight = errors.New("light: unknown light handle")

// Handle is the stable identifier of a light in a Registry. Indices move when
// lights are removed; handles do not.
type Handle = uuid.UUID

// SphereSoA holds the bounding spheres of every registered light as parallel
// arrays, index-aligned with the registry. Each slice is padded to a multiple of
// common.LaneWidth so the culler can always load whole lanes; padding lanes are
// zero and disabled.
type SphereSoA struct {
	X, Y, Z, R []float32
	Enabled    []bool
	n          int
}

// NewSphereSoA builds a standalone lane-padded sphere set, for tools and tests that
// cull spheres without a Registry.
//
// Parameters:
//   - spheres: the spheres to store
//   - enabled: per-sphere enabled flags; nil enables every sphere
//
// Returns:
//   - *SphereSoA: the padded sphere set
func NewSphereSoA(spheres []BoundingSphere, enabled []bool) *SphereSoA {
	s := &SphereSoA{}
	s.reserve(len(spheres))
	for i, bs := range spheres {
		s.append(bs, enabled == nil || enabled[i])
	}
	return s
}

// Len returns the number of real (unpadded) spheres.
func (s *SphereSoA) Len() int { return s.n }

// Padded returns the slice length available for lane loads.
func (s *SphereSoA) Padded() int { return len(s.X) }

func (s *SphereSoA) reserve(capacity int) {
	c := common.PadToLanes(capacity)
	s.X = make([]float32, 0, c)
	s.Y = make([]float32, 0, c)
	s.Z = make([]float32, 0, c)
	s.R = make([]float32, 0, c)
	s.Enabled = make([]bool, 0, c)
}

func (s *SphereSoA) append(bs BoundingSphere, enabled bool) {
	if s.n == len(s.X) {
		for range common.LaneWidth {
			s.X = append(s.X, 0)
			s.Y = append(s.Y, 0)
			s.Z = append(s.Z, 0)
			s.R = append(s.R, 0)
			s.Enabled = append(s.Enabled, false)
		}
	}
	s.set(s.n, bs, enabled)
	s.n++
}

func (s *SphereSoA) set(i int, bs BoundingSphere, enabled bool) {
	s.X[i], s.Y[i], s.Z[i] = bs.Center[0], bs.Center[1], bs.Center[2]
	s.R[i] = bs.Radius
	s.Enabled[i] = enabled
}

// swapRemove moves the last sphere into slot i and zeroes the vacated slot.
func (s *SphereSoA) swapRemove(i int) {
	last := s.n - 1
	s.X[i], s.Y[i], s.Z[i], s.R[i] = s.X[last], s.Y[last], s.Z[last], s.R[last]
	s.Enabled[i] = s.Enabled[last]
	s.set(last, BoundingSphere{}, false)
	s.n--
	if s.n%common.LaneWidth == 0 {
		p := common.PadToLanes(s.n)
		s.X, s.Y, s.Z, s.R = s.X[:p], s.Y[:p], s.Z[:p], s.R[:p]
		s.Enabled = s.Enabled[:p]
	}
}

func (s *SphereSoA) clear() {
	s.X, s.Y, s.Z, s.R = s.X[:0], s.Y[:0], s.Z[:0], s.R[:0]
	s.Enabled = s.Enabled[:0]
	s.n = 0
}

// Registry owns the scene's dynamic lights together with their bounding spheres
// and GPU records, all index-aligned.
//
// A Registry has a single writer. Mutations are made between frames; during a
// frame the clustering engine holds a View, and any mutation blocks until the
// View is released.
type Registry interface {
	// Add copies l into the registry and returns its handle. Panics when the
	// registry is already at MaxLights.
	//
	// Parameters:
	//   - l: the light to add
	//
	// Returns:
	//   - Handle: the stable handle of the new light
	Add(l Light) Handle

	// AddLight builds a light from options and adds it. Panics when the registry is
	// already at MaxLights.
	//
	// Parameters:
	//   - lightType: point or spot
	//   - opts: light builder options
	//
	// Returns:
	//   - Handle: the stable handle of the new light
	AddLight(lightType LightType, opts ...LightBuilderOption) Handle

	// Remove deletes the light named by h. The last light is moved into its slot.
	//
	// Parameters:
	//   - h: the light handle
	//
	// Returns:
	//   - error: ErrUnknownLight if h is not registered
	Remove(h Handle) error

	// Update applies options to the light named by h and recomputes its radius,
	// bounding sphere and GPU record.
	//
	// Parameters:
	//   - h: the light handle
	//   - opts: light builder options
	//
	// Returns:
	//   - error: ErrUnknownLight if h is not registered
	Update(h Handle, opts ...LightBuilderOption) error

	// Move sets the position of the light named by h.
	//
	// Parameters:
	//   - h: the light handle
	//   - x, y, z: the new world-space position
	//
	// Returns:
	//   - error: ErrUnknownLight if h is not registered
	Move(h Handle, x, y, z float32) error

	// Get returns a snapshot of the light named by h.
	//
	// Parameters:
	//   - h: the light handle
	//
	// Returns:
	//   - Light: the light, nil if unknown
	//   - bool: true if h is registered
	Get(h Handle) (Light, bool)

	// All iterates over every registered light in index order.
	All() iter.Seq2[Handle, Light]

	// Len returns the number of registered lights.
	Len() int

	// MaxLights returns the registry capacity.
	MaxLights() int

	// Generation returns a counter incremented on every mutation.
	Generation() uint64

	// Clear removes every light.
	Clear()

	// Acquire returns a read-only View of the registry. Writers block until the
	// View is released.
	//
	// Returns:
	//   - View: the frame view; call Release when done
	Acquire() View
}

type registryImpl struct {
	mu         sync.RWMutex
	maxLights  int
	lights     []*lightImpl
	records    []GPULight
	handles    []Handle
	index      map[Handle]int
	spheres    SphereSoA
	generation uint64
}

var _ Registry = &registryImpl{}

// NewRegistry creates an empty Registry with the provided options applied.
//
// Parameters:
//   - opts: variadic list of RegistryBuilderOption functions
//
// Returns:
//   - Registry: the new registry
func NewRegistry(opts ...RegistryBuilderOption) Registry {
	r := &registryImpl{}
	for _, opt := range opts {
		opt(r)
	}
	r.maxLights = common.Coalesce(r.maxLights, DefaultMaxLights)
	if r.maxLights < 0 {
		panic(fmt.Sprintf("light: invalid MaxLights %d", r.maxLights))
	}

	r.lights = make([]*lightImpl, 0, r.maxLights)
	r.records = make([]GPULight, 0, r.maxLights)
	r.handles = make([]Handle, 0, r.maxLights)
	r.index = make(map[Handle]int, r.maxLights)
	r.spheres.reserve(r.maxLights)
	return r
}

func (r *registryImpl) Add(l Light) Handle {
	if l == nil {
		panic("light: Registry.Add requires a non-nil Light")
	}
	return r.insert(fromLight(l))
}

func (r *registryImpl) AddLight(lightType LightType, opts ...LightBuilderOption) Handle {
	return r.insert(NewLight(lightType, opts...).(*lightImpl))
}

func (r *registryImpl) insert(l *lightImpl) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.lights) >= r.maxLights {
		panic(fmt.Sprintf("light: registry capacity of %d lights exceeded", r.maxLights))
	}

	h := uuid.New()
	r.index[h] = len(r.lights)
	r.lights = append(r.lights, l)
	r.records = append(r.records, ToGPULight(l))
	r.handles = append(r.handles, h)
	r.spheres.append(l.sphere, l.enabled)
	r.generation++
	return h
}

func (r *registryImpl) Remove(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[h]
	if !ok {
		return fmt.Errorf("remove %s: %w", h, ErrUnknownLight)
	}
	last := len(r.lights) - 1
	if i != last {
		r.lights[i] = r.lights[last]
		r.records[i] = r.records[last]
		r.handles[i] = r.handles[last]
		r.index[r.handles[i]] = i
	}
	r.lights[last] = nil
	r.lights = r.lights[:last]
	r.records = r.records[:last]
	r.handles = r.handles[:last]
	r.spheres.swapRemove(i)
	delete(r.index, h)
	r.generation++
	return nil
}

func (r *registryImpl) Update(h Handle, opts ...LightBuilderOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[h]
	if !ok {
		return fmt.Errorf("update %s: %w", h, ErrUnknownLight)
	}
	l := r.lights[i]
	l.apply(opts...)
	r.records[i] = ToGPULight(l)
	r.spheres.set(i, l.sphere, l.enabled)
	r.generation++
	return nil
}

func (r *registryImpl) Move(h Handle, x, y, z float32) error {
	return r.Update(h, WithPosition(x, y, z))
}

func (r *registryImpl) Get(h Handle) (Light, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[h]
	if !ok {
		return nil, false
	}
	return r.lights[i].clone(), true
}

func (r *registryImpl) All() iter.Seq2[Handle, Light] {
	return func(yield func(Handle, Light) bool) {
		r.mu.RLock()
		defer r.mu.RUnlock()
		for i, l := range r.lights {
			if !yield(r.handles[i], l.clone()) {
				return
			}
		}
	}
}

func (r *registryImpl) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lights)
}

func (r *registryImpl) MaxLights() int {
	return r.maxLights
}

func (r *registryImpl) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

func (r *registryImpl) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.lights)
	r.lights = r.lights[:0]
	r.records = r.records[:0]
	r.handles = r.handles[:0]
	clear(r.index)
	r.spheres.clear()
	r.generation++
}

func (r *registryImpl) Acquire() View {
	r.mu.RLock()
	return View{reg: r}
}

// View is a read-only, frame-long window onto a Registry. Indices are stable for
// the lifetime of the View.
type View struct {
	reg *registryImpl
}

// Len returns the number of lights visible through the view.
func (v View) Len() int { return len(v.reg.lights) }

// MaxLights returns the capacity of the underlying registry.
func (v View) MaxLights() int { return v.reg.maxLights }

// Generation returns the registry generation the view observes.
func (v View) Generation() uint64 { return v.reg.generation }

// Light returns the light at index i.
func (v View) Light(i int) Light { return v.reg.lights[i] }

// Record returns the precomputed GPU record of the light at index i.
func (v View) Record(i int) *GPULight { return &v.reg.records[i] }

// Handle returns the handle of the light at index i.
func (v View) Handle(i int) Handle { return v.reg.handles[i] }

// Spheres returns the lane-padded bounding spheres.
func (v View) Spheres() *SphereSoA { return &v.reg.spheres }

// Release ends the view and unblocks writers. A View must be released exactly once.
func (v View) Release() { v.reg.mu.RUnlock() }
