package pipeline

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/woozymasta/zonemap/internal/projection"
)

// Recorder receives batch statistics. internal/metrics implements it.
type Recorder interface {
	ObserveBatch(country string, stats Stats, elapsed time.Duration)
	ObserveSuperseded(country string)
}

// Options tune a Pipeline.
type Options struct {
	// FallbackCountry is used when a batch names a country the registry
	// does not know. Empty means unknown countries fail the batch.
	FallbackCountry string
	Recorder        Recorder
	Tolerance       float64 // degrees
	Workers         int     // defaults to GOMAXPROCS
}

// Pipeline converts batches of entities. It holds no per-batch state and
// is safe for concurrent use.
type Pipeline struct {
	registry *projection.Registry
	opts     Options
	convert  func(Entity, *projection.Projector, float64) (Feature, error)
}

type outcome struct {
	feature Feature
	err     error
}

// New returns a pipeline resolving countries against registry.
func New(registry *projection.Registry, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Tolerance < 0 {
		opts.Tolerance = 0
	}

	return &Pipeline{registry: registry, opts: opts, convert: convert}
}

// Run converts every entity of the batch.
//
// An unknown country fails the whole batch. Entity level failures are
// counted in Result.Stats and never abort the batch. When ctx is done
// before the batch completes Run returns ctx.Err() and no result, and
// nothing is reported to the Recorder.
func (p *Pipeline) Run(ctx context.Context, batch Batch) (*Result, error) {
	res, elapsed, err := p.run(ctx, batch)
	if err != nil {
		return nil, err
	}

	p.record(batch.Country, res.Stats, elapsed)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, batch Batch) (*Result, time.Duration, error) {
	start := time.Now()

	params, fellBack, err := p.registry.Resolve(batch.Country, p.opts.FallbackCountry)
	if err != nil {
		return nil, 0, err
	}
	if fellBack {
		log.Debug().
			Str("country", batch.Country).
			Str("projection", params.Code).
			Msg("Unknown country, using fallback projection")
	}

	proj, err := projection.NewProjector(params)
	if err != nil {
		return nil, 0, err
	}

	tolerance := p.opts.Tolerance
	if batch.Tolerance != nil {
		tolerance = max(*batch.Tolerance, 0)
	}

	outcomes, err := p.process(ctx, proj, tolerance, batch.Entities)
	if err != nil {
		return nil, 0, err
	}

	res := &Result{
		Country:    batch.Country,
		Projection: params.Code,
		FellBack:   fellBack,
		Features:   make([]Feature, 0, len(outcomes)),
		Stats:      Stats{Total: len(outcomes)},
	}

	for _, o := range outcomes {
		if o.err == nil {
			res.Features = append(res.Features, o.feature)
			res.Stats.Features++
			if o.feature.OutsideEnvelope {
				res.Stats.OutsideEnvelope++
			}
			continue
		}

		switch {
		case errors.Is(o.err, ErrNoPosition):
			res.Stats.Filtered++
		case errors.Is(o.err, projection.ErrOutOfDomain):
			res.Stats.OutOfDomain++
		default:
			res.Stats.Invalid++
		}
		log.Trace().Err(o.err).Str("country", batch.Country).Msg("Entity dropped")
	}

	elapsed := time.Since(start)
	log.Debug().
		Str("country", batch.Country).
		Int("total", res.Stats.Total).
		Int("features", res.Stats.Features).
		Int("filtered", res.Stats.Filtered).
		Int("out_of_domain", res.Stats.OutOfDomain).
		Int("invalid", res.Stats.Invalid).
		Dur("elapsed", elapsed).
		Msg("Batch converted")

	return res, elapsed, nil
}

func (p *Pipeline) record(country string, stats Stats, elapsed time.Duration) {
	if p.opts.Recorder != nil {
		p.opts.Recorder.ObserveBatch(country, stats, elapsed)
	}
}

// process fans entities out to a fixed worker pool. Every worker writes
// only its own slot of the outcome slice, so input order is kept.
func (p *Pipeline) process(ctx context.Context, proj *projection.Projector, tolerance float64, entities []Entity) ([]outcome, error) {
	outcomes := make([]outcome, len(entities))

	workers := min(p.opts.Workers, len(entities))
	jobs := make(chan int, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				f, err := p.convert(entities[i], proj, tolerance)
				outcomes[i] = outcome{feature: f, err: err}
			}
		}()
	}

feed:
	for i := range entities {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return outcomes, nil
}

// convert isolates one entity so a panic only drops that entity.
func convert(e Entity, proj *projection.Projector, tolerance float64) (f Feature, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("entity %q: panic: %v", e.ID, r)
		}
	}()

	return Convert(e, proj, tolerance)
}
