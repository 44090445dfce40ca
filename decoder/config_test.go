package decoder

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/bufr/expand"
	"github.com/arloliu/bufr/internal/options"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, expand.DefaultMaxReplication, cfg.MaxReplication)
	require.Equal(t, expand.DefaultMaxDepth, cfg.MaxDepth)
	require.Equal(t, expand.DefaultMaxInstructions, cfg.MaxInstructions)
	require.Equal(t, []int{0}, cfg.SupportedMasterTables)
	require.NotNil(t, cfg.Logger)
	require.True(t, cfg.supports(0))
	require.False(t, cfg.supports(10))
}

func TestOptions(t *testing.T) {
	cfg := DefaultConfig()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	err := options.Apply(&cfg,
		WithMaxReplication(10),
		WithMaxDepth(5),
		WithMaxInstructions(100),
		WithSupportedMasterTables(0, 10),
		WithLogger(logger),
	)
	require.NoError(t, err)
	require.Equal(t, expand.Limits{MaxDepth: 5, MaxReplication: 10, MaxInstructions: 100}, cfg.limits())
	require.True(t, cfg.supports(10))
	require.Same(t, logger, cfg.Logger)

	require.NoError(t, options.Apply(&cfg, WithLogger(nil)))
	require.NotSame(t, logger, cfg.Logger)

	for _, opt := range []Option{WithMaxReplication(0), WithMaxDepth(-1), WithMaxInstructions(0), WithSupportedMasterTables()} {
		require.Error(t, options.Apply(&cfg, opt))
	}
}

func TestWithConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, options.Apply(&cfg, WithConfig(Config{MaxDepth: 9})))
	require.Equal(t, 9, cfg.MaxDepth)
	require.Equal(t, expand.DefaultMaxReplication, cfg.MaxReplication)
	require.Equal(t, []int{0}, cfg.SupportedMasterTables)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(`
max_replication: 4096
max_depth: 32
supported_master_tables: [0, 10]
`))
	require.NoError(t, err)
	require.Equal(t, 4096, cfg.MaxReplication)
	require.Equal(t, 32, cfg.MaxDepth)
	require.Equal(t, expand.DefaultMaxInstructions, cfg.MaxInstructions)
	require.Equal(t, []int{0, 10}, cfg.SupportedMasterTables)
	require.NotNil(t, cfg.Logger)

	cfg, err = LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().MaxDepth, cfg.MaxDepth)

	tests := map[string]string{
		"unknown key":     "max_width: 3\n",
		"negative limit":  "max_depth: -1\n",
		"no master table": "supported_master_tables: []\n",
		"bad yaml":        "max_depth: [\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(strings.NewReader(doc))
			require.Error(t, err)
		})
	}
}

func TestReferenceValue(t *testing.T) {
	require.Equal(t, int64(1000), referenceValue(1000, 14))
	require.Equal(t, int64(-1000), referenceValue(1<<13|1000, 14))
	require.Equal(t, int64(0), referenceValue(0, 8))
}

func TestScaled(t *testing.T) {
	require.InDelta(t, 273.15, scaled(27315, 0, 2), 1e-12)
	require.InDelta(t, 100000, scaled(10000, 0, -1), 1e-12)
	require.InDelta(t, -40, scaled(0, -40, 0), 1e-12)
	require.InDelta(t, 1.5, scaled(155, -5, 2), 1e-12)
}
