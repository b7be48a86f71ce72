package core

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// FeeBase is the denominator of Config.FeeRate: rates are in basis points.
const FeeBase = 10_000

// Config are the configuration parameters of the task executor.
type Config struct {
	Self         common.Address // identity the batch runs as; pays fees
	Level        uint64         // permission tier handed to the oracle and asset registry
	FeeRate      uint64         // execution fee in basis points of the consumed quota
	FeeCollector common.Address // receiver of execution fees
	MaxDepth     int            // deepest permitted nested batch, 0 disables nesting
}

// DefaultConfig contains the default configurations for the task executor.
var DefaultConfig = Config{
	MaxDepth: 8,
}

// Sanitize checks the provided user configurations and changes anything that's
// unreasonable or unworkable.
func (config *Config) Sanitize() Config {
	conf := *config
	if conf.FeeRate > FeeBase {
		log.Warn("Sanitizing invalid executor fee rate", "provided", conf.FeeRate, "updated", FeeBase)
		conf.FeeRate = FeeBase
	}
	if conf.FeeRate > 0 && conf.FeeCollector == (common.Address{}) {
		log.Warn("Disabling executor fees without a collector", "provided", conf.FeeRate, "updated", 0)
		conf.FeeRate = 0
	}
	if conf.MaxDepth < 0 {
		log.Warn("Sanitizing invalid executor max depth", "provided", conf.MaxDepth, "updated", DefaultConfig.MaxDepth)
		conf.MaxDepth = DefaultConfig.MaxDepth
	}
	return conf
}
