package host

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/justyntemme/framego/pkg/plugin"
)

// DefaultMaxFlush bounds the drain loop of a Driver
const DefaultMaxFlush = 1024

// Driver sequences one Stage: it feeds input frame sets, applies the stage's
// error policy and drains it at end of stream.
type Driver struct {
	stage    *Stage
	maxFlush int
	logger   *zap.Logger
	metrics  *Metrics

	fed      uint64
	produced uint64
	dropped  uint64
}

// Stats summarizes what a Driver has done
type Stats struct {
	Fed      uint64
	Produced uint64
	Dropped  uint64
}

// NewDriver creates a driver for stage. maxFlush <= 0 selects DefaultMaxFlush.
func NewDriver(stage *Stage, maxFlush int) *Driver {
	if maxFlush <= 0 {
		maxFlush = DefaultMaxFlush
	}
	return &Driver{
		stage:    stage,
		maxFlush: maxFlush,
		logger:   stage.logger.Named("driver"),
		metrics:  stage.metrics,
	}
}

// Stage returns the driven stage
func (d *Driver) Stage() *Stage {
	return d.stage
}

// Stats returns the driver counters
func (d *Driver) Stats() Stats {
	return Stats{Fed: d.fed, Produced: d.produced, Dropped: d.dropped}
}

// Feed processes one input frame set. ok is false when the plugin answered
// StatusTryAgain or the frame set was dropped under PolicyDropFrameSet.
func (d *Driver) Feed(inputs []Frame) (outputs []Frame, ok bool, err error) {
	frames, status, err := d.stage.Process(inputs)
	d.fed++
	if err != nil {
		if d.drop(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if status == plugin.StatusTryAgain {
		return nil, false, nil
	}
	d.produced++
	return frames, true, nil
}

// Drain signals end of stream and flushes until the stage reports nothing
// left, handing each frame set to emit. It returns the number of frame sets
// flushed.
func (d *Driver) Drain(emit func([]Frame) error) (int, error) {
	if err := d.stage.EndOfStream(); err != nil {
		return 0, err
	}

	flushed := 0
	for calls := 0; ; calls++ {
		if calls == d.maxFlush {
			d.logger.Error("drain did not terminate", zap.Int("max_flush", d.maxFlush))
			return flushed, fmt.Errorf("%w: %s after %d calls", ErrDrainDiverged, d.stage.Name(), d.maxFlush)
		}

		frames, ok, err := d.stage.Flush()
		if err != nil {
			if d.drop(err) {
				continue
			}
			return flushed, err
		}
		if !ok {
			break
		}

		flushed++
		d.produced++
		if emit != nil {
			if err := emit(frames); err != nil {
				return flushed, err
			}
		}
	}

	d.logger.Debug("drained", zap.Int("flushed", flushed))
	return flushed, nil
}

// Close uninitializes the stage
func (d *Driver) Close() {
	d.stage.Uninit()
}

// drop reports whether err is a processing error the stage's policy allows
// the driver to absorb
func (d *Driver) drop(err error) bool {
	if d.stage.Policy() != PolicyDropFrameSet {
		return false
	}
	if !errors.Is(err, ErrProcessing) || errors.Is(err, ErrPluginPanic) {
		return false
	}
	d.dropped++
	d.metrics.RecordDropped(d.stage.Name())
	return true
}
