package source

import (
	"fmt"
	"log/slog"

	"github.com/arloliu/bufr/compress"
	"github.com/arloliu/bufr/format"
	"github.com/arloliu/bufr/internal/options"
)

// DefaultMaxMessageSize caps the declared length of a message the reader will buffer.
// Section 0 encodes the length in three octets, so no valid message exceeds it.
const DefaultMaxMessageSize = 1<<24 - 1

const readChunk = 32 * 1024

type config struct {
	compression format.CompressionType
	maxSize     int
	logger      *slog.Logger
}

func defaultConfig() config {
	return config{
		compression: format.CompressionNone,
		maxSize:     DefaultMaxMessageSize,
		logger:      slog.New(slog.DiscardHandler),
	}
}

// Option configures a Reader.
type Option = options.Option[*config]

// WithCompression declares how the feed is compressed. The whole feed is decompressed
// before scanning.
func WithCompression(c format.CompressionType) Option {
	return options.New(func(cfg *config) error {
		if _, err := compress.GetCodec(c); err != nil {
			return fmt.Errorf("source: %w", err)
		}
		cfg.compression = c

		return nil
	})
}

// WithMaxMessageSize skips messages declaring a length above n octets.
func WithMaxMessageSize(n int) Option {
	return options.New(func(cfg *config) error {
		if n <= 0 || n > DefaultMaxMessageSize {
			return fmt.Errorf("source: max message size must be in 1..%d, got %d", DefaultMaxMessageSize, n)
		}
		cfg.maxSize = n

		return nil
	})
}

// WithLogger reports skipped garbage and false starts at Debug level.
func WithLogger(l *slog.Logger) Option {
	return options.NoError(func(cfg *config) {
		if l == nil {
			l = slog.New(slog.DiscardHandler)
		}
		cfg.logger = l
	})
}
