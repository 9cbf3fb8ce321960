package solver

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/t14raptor/go-fast/ast"

	"github.com/fxnatic/filehash-go/extractor"
	"github.com/fxnatic/filehash-go/sandbox"
)

type Options struct {
	WrapperIndex     int
	MaxCallStackSize int
	Logger           *log.Entry
}

type Option func(*Options)

func WithWrapperIndex(index int) Option {
	return func(o *Options) { o.WrapperIndex = index }
}

func WithMaxCallStackSize(size int) Option {
	return func(o *Options) { o.MaxCallStackSize = size }
}

func WithLogger(logger *log.Entry) Option {
	return func(o *Options) { o.Logger = logger }
}

func newOptions(opts []Option) Options {
	o := Options{
		WrapperIndex:     sandbox.DefaultWrapperIndex,
		MaxCallStackSize: sandbox.DefaultMaxCallStackSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = log.NewEntry(log.StandardLogger())
	}
	return o
}

// FileHash computes the file hash of one bundle source.
func FileHash(ctx context.Context, src string, opts ...Option) (float64, error) {
	prog, err := extractor.Parse(src)
	if err != nil {
		return 0, err
	}
	return FileHashProgram(ctx, prog, opts...)
}

// FileHashProgram computes the file hash of an already parsed bundle. Each
// call builds its own sandbox, so calls may run concurrently on different
// programs. Cancelling ctx interrupts the running fragment and discards the
// sandbox.
func FileHashProgram(ctx context.Context, p *ast.Program, opts ...Option) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	o := newOptions(opts)
	logger := o.Logger.WithField("component", "solver")

	manifest, err := extractor.ExtractProgram(p)
	if err != nil {
		return 0, fmt.Errorf("failed at step 1: %w", err)
	}
	logger.WithFields(log.Fields{
		"legend": manifest.Legend.VariableName,
		"items":  len(manifest.Items),
		"list":   manifest.List,
		"index":  manifest.Index,
	}).Debug("extracted manifest")

	sb, err := sandbox.New(sandbox.Options{
		MaxCallStackSize: o.MaxCallStackSize,
		Logger:           o.Logger,
	})
	if err != nil {
		return 0, fmt.Errorf("failed at step 2: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			sb.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	if _, err := sandbox.ExecuteWrapper(sb, p, o.WrapperIndex, logger); err != nil {
		return 0, fmt.Errorf("failed at step 3: %w", interruptCause(ctx, err))
	}

	hash, err := Assemble(manifest, sb)
	if err != nil {
		return 0, fmt.Errorf("failed at step 4: %w", interruptCause(ctx, err))
	}

	logger.WithField("hash", hash).Debug("computed file hash")
	return hash, nil
}

// interruptCause replaces an interrupt with the context error that caused it.
func interruptCause(ctx context.Context, err error) error {
	if sandbox.IsInterrupted(err) && ctx.Err() != nil {
		return errors.Join(ctx.Err(), err)
	}
	return err
}
