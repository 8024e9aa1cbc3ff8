package indexers

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/vbonduro/AudioBookRequest/pkg/types"
)

// Enrich runs every registered plugin against the batch of sources:
// setup fans out concurrently, each source is claimed by the first
// matching plugin in registry order, and the per-source edits fan out
// again. Every plugin/source failure is logged and absorbed; the batch
// always completes.
//
// Safety: a source is mutated by at most one plugin (first match wins),
// so concurrent edits never write the same source.
func Enrich(ctx context.Context, env *Env, book *types.Book, sources []*types.Source, registry []Factory, taskTimeout time.Duration) {
	type plugin struct {
		idx Indexer
		cfg Values
	}

	var plugins []plugin
	for _, mk := range registry {
		idx := mk()
		cfg, err := Resolve(ctx, env.Settings, idx.Configurations())
		if err != nil {
			log.Printf("[enrich] skipping %s: %v", idx.Name(), err)
			continue
		}
		if !idx.Active(cfg) {
			continue
		}
		plugins = append(plugins, plugin{idx: idx, cfg: cfg})
	}
	if len(plugins) == 0 {
		return
	}

	ready := make([]bool, len(plugins))
	var wg sync.WaitGroup
	for i, p := range plugins {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := runIsolated(ctx, taskTimeout, func(tctx context.Context) error {
				return p.idx.Setup(tctx, env, book, p.cfg)
			})
			if err != nil {
				log.Printf("[enrich] %s setup failed: %v", p.idx.Name(), err)
				return
			}
			ready[i] = true
		}()
	}
	wg.Wait()

	// first matching ready plugin owns the source
	type job struct {
		idx Indexer
		src *types.Source
	}
	var jobs []job
	for _, src := range sources {
		for i, p := range plugins {
			if !ready[i] {
				continue
			}
			if p.idx.IsMatchingSource(src) {
				jobs = append(jobs, job{idx: p.idx, src: src})
				break
			}
		}
	}

	for _, j := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := runIsolated(ctx, taskTimeout, func(tctx context.Context) error {
				return j.idx.EditSourceMetadata(tctx, env, j.src)
			})
			if err != nil {
				log.Printf("[enrich] %s failed to edit %q: %v", j.idx.Name(), j.src.Title, err)
			}
		}()
	}
	wg.Wait()
}

// runIsolated caps the task's runtime and converts a panic into an
// error so a misbehaving plugin cannot take the process down.
func runIsolated(ctx context.Context, timeout time.Duration, fn func(context.Context) error) (err error) {
	tctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn(tctx)
}
