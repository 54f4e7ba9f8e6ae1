// Package cfgloader loads and validates configuration at the start of an application.
package cfgloader

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/code19m/errx"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rise-and-shine/evwrap/logger"
	"gopkg.in/yaml.v3"
)

const (
	EnvProduction = "production"
	EnvStaging    = "staging"
	EnvDev        = "dev"
	EnvLocal      = "local"
	EnvTest       = "test"

	defaultDir = "./config"

	CodeInvalidEnvironment = "INVALID_ENVIRONMENT"
	CodeConfigNotFound     = "CONFIG_NOT_FOUND"
	CodeInvalidConfig      = "INVALID_CONFIG"
)

// MustLoad is Load that logs the error and exits the process on failure.
func MustLoad[T any](opts ...Option) T {
	config, err := Load[T](opts...)
	if err != nil {
		logger.Named("cfgloader").Errorx(err)
		os.Exit(1)
	}
	return config
}

// Load reads ${ENVIRONMENT}.yaml from the config directory, expands environment
// variables, applies `default` tags and validates the result with `validate` tags.
//
//	type Config struct {
//	    Logger logger.Config  `yaml:"logger"`
//	    Wrappers wrapper.Config `yaml:"wrappers"`
//	}
func Load[T any](opts ...Option) (T, error) {
	var config T

	o := Options{Dir: defaultDir}
	for _, opt := range opts {
		opt(&o)
	}

	if reflect.TypeFor[T]().Kind() == reflect.Pointer {
		return config, errx.New("[cfgloader]: config type must not be a pointer", errx.WithCode(CodeInvalidConfig))
	}

	_ = godotenv.Load()

	env, err := environment(o)
	if err != nil {
		return config, err
	}

	path := filepath.Join(o.Dir, env+".yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, errx.New(
			"[cfgloader]: config file not found",
			errx.WithCode(CodeConfigNotFound),
			errx.WithType(errx.T_NotFound),
			errx.WithDetails(errx.D{"path": path}),
		)
	}
	if err != nil {
		return config, errx.Wrap(err, errx.WithDetails(errx.D{"path": path}))
	}

	if err = yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return config, errx.Wrap(err, errx.WithCode(CodeInvalidConfig), errx.WithDetails(errx.D{"path": path}))
	}

	if err = defaults.Set(&config); err != nil {
		return config, errx.Wrap(err, errx.WithCode(CodeInvalidConfig))
	}

	if err = validate(&config, env); err != nil {
		return config, err
	}

	if !o.Silent {
		printConfig(config)
	}

	return config, nil
}

func environment(o Options) (string, error) {
	env := o.Environment
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if !slices.Contains([]string{EnvProduction, EnvStaging, EnvDev, EnvLocal, EnvTest}, env) {
		return "", errx.New(
			"[cfgloader]: ENVIRONMENT is not set or invalid, choices are: production, staging, dev, local, test",
			errx.WithCode(CodeInvalidEnvironment),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"environment": env}),
		)
	}
	return env, nil
}

func validate(config any, env string) error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(config)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors) //nolint:errorlint // validator returns the concrete type
	if !ok {
		return errx.Wrap(err, errx.WithCode(CodeInvalidConfig))
	}

	failed := make([]string, 0, len(errs))
	for _, fe := range errs {
		tag := fe.Tag()
		if fe.Param() != "" {
			tag += "=" + fe.Param()
		}
		failed = append(failed, fmt.Sprintf("%s: %s", fe.Namespace(), tag))
	}

	return errx.New(
		"[cfgloader]: invalid fields in config",
		errx.WithCode(CodeInvalidConfig),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{"environment": env, "fields": strings.Join(failed, ", ")}),
	)
}
