package cfgloader

// Options holds configuration options for Load and MustLoad.
type Options struct {
	// Dir is the directory holding ${ENVIRONMENT}.yaml files. Default is "./config".
	Dir string
	// Environment overrides the ENVIRONMENT variable.
	Environment string
	// Silent disables printing the loaded config.
	Silent bool
}

// Option is a functional option for configuring Load behavior.
type Option func(*Options)

// WithDir sets the config directory.
func WithDir(dir string) Option {
	return func(o *Options) {
		o.Dir = dir
	}
}

// WithEnvironment sets the environment instead of reading ENVIRONMENT.
func WithEnvironment(env string) Option {
	return func(o *Options) {
		o.Environment = env
	}
}

// WithSilent disables config printing.
func WithSilent() Option {
	return func(o *Options) {
		o.Silent = true
	}
}
