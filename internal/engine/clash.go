package engine

import (
	"context"

	"github.com/mbagrov/bimtally/internal/navisworks"
)

// Thin forwards to the Navisworks service; the client does the rollups.

// NWStatus reports the Navisworks plugin and document state.
func (e *Engine) NWStatus(ctx context.Context) (*navisworks.Status, error) {
	clash, err := e.requireClash()
	if err != nil {
		return nil, err
	}
	return clash.GetStatus(ctx)
}

// NWClashes lists clash tests, optionally filtered by test name.
func (e *Engine) NWClashes(ctx context.Context, filter string) (*navisworks.ClashList, error) {
	clash, err := e.requireClash()
	if err != nil {
		return nil, err
	}
	return clash.Clashes(ctx, filter)
}

// NWRunClash runs one clash test by name.
func (e *Engine) NWRunClash(ctx context.Context, testName string) (*navisworks.ClashRun, error) {
	clash, err := e.requireClash()
	if err != nil {
		return nil, err
	}
	return clash.RunClash(ctx, testName)
}

// NWVolumes asks the plugin for a quantity takeoff.
func (e *Engine) NWVolumes(ctx context.Context, category string) (*navisworks.VolumeReport, error) {
	clash, err := e.requireClash()
	if err != nil {
		return nil, err
	}
	return clash.Volumes(ctx, category)
}

// NWAggregate federates the given model files into one document.
func (e *Engine) NWAggregate(ctx context.Context, inputs []string, outputPath string) (*navisworks.AggregateResult, error) {
	clash, err := e.requireClash()
	if err != nil {
		return nil, err
	}
	return clash.Aggregate(ctx, inputs, outputPath)
}
