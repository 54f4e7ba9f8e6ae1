package cfgloader

import (
	"github.com/rise-and-shine/evwrap/logger"
	"github.com/rise-and-shine/evwrap/mask"
)

// printConfig logs config with fields tagged `mask:"true"` hidden.
func printConfig(config any) {
	logger.Named("cfgloader").With("config", mask.StructToOrdMap(config)).Info("loaded config")
}
