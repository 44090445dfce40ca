// Package bufr decodes WMO FM 94 BUFR messages.
//
// BUFR is table driven: a message lists descriptors, and the meaning and bit width of
// every value comes from descriptor tables published as versioned master tables. This
// package ties the steps together:
//
//   - message frames the raw bytes into sections
//   - tables holds the Table B and Table D entries of one master table version
//   - decoder expands the descriptors and reads the data section
//   - dataset exposes the decoded subsets
//
// # Basic Usage
//
// Build or load the registries of the master versions you support, then decode:
//
//	v13 := tables.New(13)
//	if err := v13.Load(src, false); err != nil {
//	    return err
//	}
//	v13.Freeze()
//
//	ds, err := bufr.Decode(raw, []*tables.Registry{v13})
//	if err != nil {
//	    // ds may still hold the subsets decoded before the failure
//	}
//	for _, s := range ds.All() {
//	    j := s.Find(12101, 0)
//	    ...
//	}
//
// Messages read from a bulletin feed come from package source, and many messages can be
// decoded concurrently with DecodeBatch.
//
// # Table Selection
//
// The registry is chosen by the master table version in section 1. When no candidate
// matches, the first candidate is used and a warning is logged through the decoder's
// logger (see decoder.WithLogger).
package bufr

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/arloliu/bufr/dataset"
	"github.com/arloliu/bufr/decoder"
	"github.com/arloliu/bufr/errs"
	"github.com/arloliu/bufr/message"
	"github.com/arloliu/bufr/tables"
)

// DefaultBatchConcurrency is the number of messages DecodeBatch decodes at once when
// no limit is given.
const DefaultBatchConcurrency = 8

// Result is the outcome of decoding one message in a batch.
type Result struct {
	Message *message.Message // nil when framing failed
	Dataset *dataset.Dataset // partial on decode errors, nil when framing failed
	Exact   bool             // whether the registry matched the declared master version
	Err     error
}

// Decode frames raw, selects the registry for its master table version and decodes it.
//
// Parameters:
//   - raw: one complete message starting with "BUFR"
//   - candidates: registries in order of preference
//   - opts: decoder options
//
// Returns:
//   - *dataset.Dataset: the decoded subsets; on a decode error the subsets before the
//     failing one
//   - error: framing, table selection or decode error
func Decode(raw []byte, candidates []*tables.Registry, opts ...decoder.Option) (*dataset.Dataset, error) {
	d, err := decoder.New(opts...)
	if err != nil {
		return nil, err
	}

	res := decodeOne(d, raw, candidates)

	return res.Dataset, res.Err
}

// DecodeMessage selects the registry for an already framed message and decodes it.
func DecodeMessage(msg *message.Message, candidates []*tables.Registry, opts ...decoder.Option) (*dataset.Dataset, error) {
	d, err := decoder.New(opts...)
	if err != nil {
		return nil, err
	}

	return decodeMessage(d, msg, candidates)
}

// DecodeBatch decodes many messages concurrently.
//
// Registries are only read, so all workers share candidates. A failure of one message is
// recorded in its Result and does not stop the others; results are in input order.
//
// Parameters:
//   - ctx: cancels messages not yet started
//   - raws: the messages
//   - candidates: registries in order of preference
//   - concurrency: maximum number of messages decoded at once, DefaultBatchConcurrency
//     when not positive
//   - opts: decoder options
//
// Returns:
//   - []Result: one result per message
//   - error: an option error, or ctx.Err() when the batch was cancelled; results of
//     messages that never started then carry the same error
func DecodeBatch(ctx context.Context, raws [][]byte, candidates []*tables.Registry, concurrency int, opts ...decoder.Option) ([]Result, error) {
	d, err := decoder.New(opts...)
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}

	results := make([]Result, len(raws))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	logger := d.Config().Logger
	for i, raw := range raws {
		if err := gctx.Err(); err != nil {
			for j := i; j < len(raws); j++ {
				results[j].Err = err
			}

			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			results[i] = decodeOne(d, raw, candidates)
			if results[i].Err != nil {
				logger.Debug("message decode failed", "index", i, "error", results[i].Err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	return results, ctx.Err()
}

func decodeOne(d *decoder.Decoder, raw []byte, candidates []*tables.Registry) Result {
	msg, err := message.Parse(raw)
	if err != nil {
		return Result{Err: err}
	}

	res := Result{Message: msg}
	reg, exact, err := selectTables(d, msg, candidates)
	if err != nil {
		res.Err = err
		return res
	}
	res.Exact = exact
	res.Dataset, res.Err = d.Decode(msg, reg)

	return res
}

func decodeMessage(d *decoder.Decoder, msg *message.Message, candidates []*tables.Registry) (*dataset.Dataset, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", errs.ErrInvalidMessage)
	}
	reg, _, err := selectTables(d, msg, candidates)
	if err != nil {
		return nil, err
	}

	return d.Decode(msg, reg)
}

func selectTables(d *decoder.Decoder, msg *message.Message, candidates []*tables.Registry) (*tables.Registry, bool, error) {
	version := msg.Section1.MasterVersion
	reg, exact, err := tables.Select(candidates, version)
	if err == nil && reg == nil {
		err = errs.ErrNoCandidates
	}
	if err != nil {
		return nil, false, fmt.Errorf("bufr: master table version %d: %w", version, err)
	}
	if !exact {
		d.Config().Logger.Warn("master table version not available, using fallback",
			"requested", version,
			"selected", reg.MasterVersion(),
			"centre", msg.Section1.Centre,
		)
	}

	return reg, exact, nil
}
