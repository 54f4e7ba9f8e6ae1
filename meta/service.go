package meta

import "sync"

var (
	serviceName    string    //nolint:gochecknoglobals // set once at startup
	serviceVersion string    //nolint:gochecknoglobals // set once at startup
	once           sync.Once //nolint:gochecknoglobals // ensures SetServiceInfo is applied once
)

// SetServiceInfo sets the global service name and version.
// Subsequent calls are ignored.
func SetServiceInfo(name, version string) {
	once.Do(func() {
		serviceName = name
		serviceVersion = version
	})
}

// GetServiceName returns the global service name.
func GetServiceName() string {
	return serviceName
}

// GetServiceVersion returns the global service version.
func GetServiceVersion() string {
	return serviceVersion
}
