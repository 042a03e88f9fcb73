package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/camvtools/camv/internal/peptide"
	"github.com/camvtools/camv/internal/spectra"
)

// WorkItem pairs a peptide query with its fragmentation scan, ready for
// validation.
type WorkItem struct {
	Seq   int
	Query *peptide.Query
	Scan  *spectra.Scan
}

// WorkResult carries one scan's validation outcome off a worker.
type WorkResult struct {
	Seq    int
	Result *ScanResult
}

// ParallelProcess validates work items using a pool of workers. Results
// arrive on the returned channel in completion order (not sequence order);
// use OrderedCollect to consume them in sequence-number order. If workers
// is 0, runtime.NumCPU() is used.
//
// A failure inside one scan's processing, panics included, is isolated into
// that scan's failed-status result. Cancelling the context stops the pool
// at scan granularity: scans already picked up run to completion, queued
// ones are dropped.
func (v *Validator) ParallelProcess(ctx context.Context, items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = v.opts.Workers
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case item, ok := <-items:
					if !ok {
						return
					}
					results <- WorkResult{Seq: item.Seq, Result: v.processIsolated(item)}
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// processIsolated runs one scan and converts a worker panic into a
// failed-status result instead of taking down the pool.
func (v *Validator) processIsolated(item WorkItem) (res *ScanResult) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("scan processing panicked",
				zap.Int("scan", item.Query.Scan),
				zap.String("peptide", item.Query.Sequence),
				zap.Any("panic", r))
			res = failed(&ScanResult{Query: item.Query, Scan: item.Scan},
				fmt.Errorf("scan %d: panic: %v", item.Query.Scan, r))
		}
	}()

	if item.Scan == nil {
		return failed(&ScanResult{Query: item.Query},
			fmt.Errorf("scan %d: no spectral data", item.Query.Scan))
	}

	res = v.ProcessScan(item.Query, item.Scan)

	switch res.Status {
	case StatusFailed:
		v.logger.Warn("scan failed",
			zap.Int("scan", item.Scan.Number),
			zap.String("peptide", item.Query.Sequence),
			zap.Error(res.Err))
	default:
		v.logger.Debug("scan processed",
			zap.Int("scan", item.Scan.Number),
			zap.String("peptide", item.Query.Sequence),
			zap.String("status", res.Status.String()))
	}

	return res
}

// OrderedCollect delivers results to fn in sequence-number order, holding
// early arrivals until their predecessors complete. It returns once the
// results channel closes, or with fn's first error.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	held := make(map[int]WorkResult)
	next := 0

	for r := range results {
		held[r.Seq] = r

		for {
			due, ok := held[next]
			if !ok {
				break
			}
			delete(held, next)
			next++
			if err := fn(due); err != nil {
				// Drain so blocked workers can exit.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// ProcessAll feeds every (query, scan) pair through the pool and collects
// results in input order. Queries with identical peptide/scan keys have
// their protein hits merged before processing, so ambiguous peptide-to-
// protein mappings report the union of accessions.
func (v *Validator) ProcessAll(ctx context.Context, queries []*peptide.Query, scans map[int]*spectra.Scan) ([]*ScanResult, error) {
	queries = MergeQueries(queries)

	items := make(chan WorkItem, 2*runtime.NumCPU())
	go func() {
		defer close(items)
		seq := 0
		for _, q := range queries {
			scan := scans[q.Scan]
			select {
			case <-ctx.Done():
				return
			case items <- WorkItem{Seq: seq, Query: q, Scan: scan}:
				seq++
			}
		}
	}()

	results := v.ParallelProcess(ctx, items, 0)

	var out []*ScanResult
	err := OrderedCollect(results, func(r WorkResult) error {
		out = append(out, r.Result)
		return nil
	})
	if err != nil {
		return out, err
	}
	return out, ctx.Err()
}

// MergeQueries folds queries sharing the same peptide/scan key into one,
// keeping the union of their protein hits and the best (lowest) rank. It
// also counts, per scan, how many distinct interpretations tie at the
// scan's best rank; counts above one feed the localization ambiguity flag.
func MergeQueries(queries []*peptide.Query) []*peptide.Query {
	byKey := make(map[string]*peptide.Query, len(queries))
	var out []*peptide.Query
	for _, q := range queries {
		key := q.Key()
		if prev, ok := byKey[key]; ok {
			prev.MergeProteinHits(q)
			if q.Rank < prev.Rank {
				prev.Rank = q.Rank
			}
			continue
		}
		byKey[key] = q
		out = append(out, q)
	}

	bestRank := make(map[int]int)
	for _, q := range out {
		if r, ok := bestRank[q.Scan]; !ok || q.Rank < r {
			bestRank[q.Scan] = q.Rank
		}
	}
	tied := make(map[int]int)
	for _, q := range out {
		if q.Rank == bestRank[q.Scan] {
			tied[q.Scan]++
		}
	}
	for _, q := range out {
		q.AltBestCount = tied[q.Scan]
	}

	return out
}
