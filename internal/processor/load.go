package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/vk/simbatch/internal/jobdir"
	"github.com/vk/simbatch/internal/persist"
	"github.com/vk/simbatch/internal/simulation"
)

// LoadStats counts the outcomes of one LoadSims pass.
type LoadStats struct {
	Candidates int
	Processed  int
	Pending    int
	Corrupt    int
	Failed     int
}

// LoadSims looks for newly finished simulations and records their results.
// By default only pending units whose result file is present are tried; with
// force every tracked unit is tried again. Missing, empty and unfinished
// results leave a unit pending, as does a result file cut short while it is
// still being written or copied. A corrupt result file is deleted so that the
// scheduler can produce it again. Any other load failure aborts the pass.
// Result files are decoded by Options.Workers goroutines; processor state is
// only touched by the calling goroutine, which saves after every change.
func (p *Processor) LoadSims(ctx context.Context, force bool) (LoadStats, error) {
	var stats LoadStats
	if p.view {
		return stats, ErrCombinedView
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	candidates, err := p.candidates(force)
	if err != nil {
		return stats, err
	}
	stats.Candidates = len(candidates)
	p.logger.Info("Loading simulations.", "candidates", len(candidates), "force", force, "workers", p.opts.Workers)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	outcomes := p.decodeAll(runCtx, candidates)

	var firstErr error
	for o := range outcomes {
		if firstErr != nil {
			continue // drain until the workers exit
		}
		changed, err := p.apply(o, &stats)
		if err == nil && changed {
			_, err = p.Save(p.layout.Root)
		}
		if err != nil {
			firstErr = err
			cancel()
		}
	}
	if firstErr != nil {
		return stats, firstErr
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	stats.Failed = len(p.failed)
	p.logger.Info("Finished loading simulations.",
		"processed", stats.Processed,
		"corrupt", stats.Corrupt,
		"missing", len(p.unprocessed),
		"total", len(p.simNames),
	)
	return stats, nil
}

// decodeAll feeds ids to a bounded pool of workers and returns the channel
// their outcomes arrive on. The channel is closed once every worker exits.
func (p *Processor) decodeAll(ctx context.Context, ids []int) <-chan outcome {
	queue := make(chan int)
	outcomes := make(chan outcome)

	go func() {
		defer close(queue)
		for _, id := range ids {
			select {
			case queue <- id:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for range p.opts.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range queue {
				o := p.decode(id)
				select {
				case outcomes <- o:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()
	return outcomes
}

type outcomeKind int

const (
	outcomePending outcomeKind = iota
	outcomeCorrupt
	outcomeDone
	outcomeFatal
)

// outcome is what a worker learned about one unit. Only the small Result is
// kept so the decoded simulation can be dropped by the worker.
type outcome struct {
	id     int
	kind   outcomeKind
	result Result
	reason error
}

// decode loads unit id and classifies it. It does not touch processor state.
func (p *Processor) decode(id int) outcome {
	path := p.simPath(id)
	log := p.logger.With("sim", id)

	sim, err := p.opts.Loader(path)
	switch {
	case err == nil:
	case isMissing(err):
		log.Debug("No completed result yet.", "reason", err)
		return outcome{id: id, kind: outcomePending, reason: err}
	case errors.Is(err, persist.ErrCorrupt):
		return outcome{id: id, kind: outcomeCorrupt, reason: err}
	default:
		return outcome{id: id, kind: outcomeFatal, reason: err}
	}

	if !sim.Finished() {
		log.Debug("Simulation not finished.", "status", sim.Status)
		return outcome{id: id, kind: outcomePending}
	}

	r := NewResult(sim, p.layout.Plots())
	if p.opts.Extractor != nil {
		if err := p.opts.Extractor(sim, &r); err != nil {
			log.Error("Failed to extract result.", "error", err)
			return outcome{id: id, kind: outcomePending, reason: err}
		}
	}
	return outcome{id: id, kind: outcomeDone, result: r}
}

// apply records o and reports whether processor state changed.
func (p *Processor) apply(o outcome, stats *LoadStats) (bool, error) {
	path := p.simPath(o.id)
	log := p.logger.With("sim", o.id)

	switch o.kind {
	case outcomePending:
		stats.Pending++
		return false, nil
	case outcomeCorrupt:
		stats.Corrupt++
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return false, fmt.Errorf("remove corrupt result %s: %w", path, rmErr)
		}
		if _, pending := p.unprocessed[o.id]; !pending {
			// A forced pass keeps the result already recorded for this unit.
			log.Warn("Deleted corrupt result file of a processed unit.", "path", path, "error", o.reason)
			return false, nil
		}
		p.corruptions[o.id]++
		log.Warn("Deleted corrupt result file.", "path", path, "error", o.reason, "corruptions", p.corruptions[o.id])
		if p.corruptions[o.id] >= p.opts.MaxCorruptions {
			p.failed[o.id] = struct{}{}
			log.Error("Unit exceeded corruption threshold and will no longer be retried.", "threshold", p.opts.MaxCorruptions)
		}
		return true, nil
	case outcomeFatal:
		log.Error("Unexpected failure loading result.", "path", path, "error", o.reason)
		return false, fmt.Errorf("load %s: %w", path, o.reason)
	}

	p.data[o.id] = o.result
	delete(p.unprocessed, o.id)
	delete(p.corruptions, o.id)
	delete(p.failed, o.id)
	stats.Processed++
	log.Debug("Processed simulation.", "name", o.result.Name)
	return true, nil
}

func (p *Processor) candidates(force bool) ([]int, error) {
	if force {
		return p.SimNames(), nil
	}
	present, err := jobdir.SimIDs(p.OutputsDir(), simulation.Extension)
	if err != nil {
		return nil, err
	}
	var out []int
	for _, id := range present {
		if _, pending := p.unprocessed[id]; !pending {
			continue
		}
		if _, failed := p.failed[id]; failed {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, io.EOF)
}
