package conf

import (
	"encoding/json"
	"fmt"
	"os"

	"muzzammil.xyz/jsonc"

	"github.com/gridscan/gridscan/common"
	"github.com/gridscan/gridscan/errors"
)

const (
	// DefaultReadBufferSize is the initial per-scan byte budget that result
	// buffers are sized to. It is doubled on demand when an incomplete query
	// produces no whole records.
	DefaultReadBufferSize = 10 * 1024 * 1024

	DefaultPartitionCount = 1

	// MinReadBufferSize guards against budgets too small to ever hold a
	// record of any fixed-width type.
	MinReadBufferSize = 1024
)

type Config struct {
	// ReadBufferSize is the byte budget for one partition's result buffers.
	ReadBufferSize int64 `json:"read_buffer_size,omitempty"`
	// AllowReadBufferReallocation permits doubling the buffers when an
	// incomplete query returns zero whole records. If disabled, that
	// condition is fatal for the partition.
	AllowReadBufferReallocation bool `json:"allow_read_buffer_reallocation"`
	// PartitionCount is the target number of balanced work units the planner
	// produces for parallel execution.
	PartitionCount int `json:"partition_count,omitempty"`
	// ResultLayout overrides the result ordering. When empty the executor
	// picks unordered for sparse arrays and the array's cell order for dense
	// ones.
	ResultLayout string `json:"result_layout,omitempty"`
	// EnableMetrics starts the prometheus exporter when a metrics factory is
	// configured.
	EnableMetrics         bool   `json:"enable_metrics,omitempty"`
	MetricsHTTPListenAddr string `json:"metrics_http_listen_addr,omitempty"`
}

func (c *Config) Validate() error {
	if c.ReadBufferSize < MinReadBufferSize {
		return errors.NewInvalidConfigurationError(fmt.Sprintf("ReadBufferSize must be >= %d", MinReadBufferSize))
	}
	if c.PartitionCount < 1 {
		return errors.NewInvalidConfigurationError("PartitionCount must be >= 1")
	}
	if _, err := common.ParseLayout(c.ResultLayout); err != nil {
		return err
	}
	if c.EnableMetrics && c.MetricsHTTPListenAddr == "" {
		return errors.NewInvalidConfigurationError("MetricsHTTPListenAddr must be specified when EnableMetrics is set")
	}
	return nil
}

func NewDefaultConfig() *Config {
	return &Config{
		ReadBufferSize:              DefaultReadBufferSize,
		AllowReadBufferReallocation: true,
		PartitionCount:              DefaultPartitionCount,
	}
}

// Load reads a config file. We use jsonc as it supports comments in JSON.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	cfg := NewDefaultConfig()
	b = jsonc.ToJSON(b)
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
