package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jhump/autovalue/processor"
)

// errFailures is returned when some value types could not be generated. The
// failures themselves have already been logged.
var errFailures = errors.New("some value types could not be generated")

func run(ctx context.Context, cfg *processor.Config) error {
	res, err := cfg.Execute(ctx)
	if res != nil {
		for _, gen := range res.Generated {
			cfg.Logger.Info("generated",
				zap.String("package", gen.ValueType.Package.Path()),
				zap.String("type", gen.ValueType.Name),
				zap.String("file", gen.FileName))
		}
	}
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if res == nil || len(res.Failures) == 0 {
		return err
	}
	for _, f := range res.Failures {
		cfg.Logger.Error("failed",
			zap.String("package", f.Package),
			zap.String("type", f.Type),
			zap.Error(f.Err))
	}
	return fmt.Errorf("%w: %d failed", errFailures, len(res.Failures))
}
