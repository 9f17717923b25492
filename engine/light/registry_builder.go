package light

// RegistryBuilderOption is a function that configures a Registry during construction.
type RegistryBuilderOption func(*registryImpl)

// WithMaxLights is an option builder that sets the registry capacity. Adding a light
// beyond it panics, and the clustering engine pre-allocates every per-frame buffer
// to this size.
//
// Parameters:
//   - n: the maximum number of lights
//
// Returns:
//   - RegistryBuilderOption: a function that applies the capacity option to a registryImpl
func WithMaxLights(n int) RegistryBuilderOption {
	return func(r *registryImpl) {
		r.maxLights = n
	}
}
