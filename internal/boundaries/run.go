package boundaries

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iKamranShahzad/osm-boundaries-importer/internal/logger"
	"github.com/iKamranShahzad/osm-boundaries-importer/internal/metrics"
)

// Runner drives resolution across a set of countries with a pause between
// consecutive roots.
type Runner struct {
	resolver *Resolver
	store    *Store
	pause    time.Duration
}

// Summary aggregates per-country statistics for one invocation. Countries
// that failed entirely still appear in Runs with zero counts.
type Summary struct {
	Runs        []*RunStats   `json:"runs"`
	Skipped     []string      `json:"skipped,omitempty"` // countries lacking a code
	TotalNodes  int           `json:"total_nodes"`
	TotalEdges  int           `json:"total_edges"`
	TotalErrors int           `json:"total_errors"`
	Elapsed     time.Duration `json:"elapsed"`
}

// NewRunner creates a Runner.
func NewRunner(resolver *Resolver, store *Store, pause time.Duration) *Runner {
	return &Runner{resolver: resolver, store: store, pause: pause}
}

// RunAll resolves every selected country in order and returns the aggregate
// summary. It fails only when the selection itself cannot be loaded;
// per-country problems are recorded on the summary instead.
func (r *Runner) RunAll(ctx context.Context, selectors []string) (*Summary, error) {
	countries, err := r.store.CountriesBySelectors(ctx, selectors)
	if err != nil {
		return nil, fmt.Errorf("load countries: %w", err)
	}
	if len(countries) == 0 {
		logger.L().Warn().Msg("no countries matched the selection")
	}

	summary := &Summary{}
	start := time.Now()
	ran := 0

	for _, country := range countries {
		if country.Code == "" {
			logger.L().Warn().Str("country", country.Name).Msg("country has no code, skipping")
			summary.Skipped = append(summary.Skipped, country.Name)
			continue
		}

		if ran > 0 && r.pause > 0 {
			if err := sleepCtx(ctx, r.pause); err != nil {
				logger.L().Warn().Msg("run canceled, stopping")
				break
			}
		}

		metrics.RunsTotal.Inc()
		stats := r.resolver.Resolve(ctx, country)
		summary.add(stats)
		ran++

		logger.L().Info().
			Str("country", stats.CountryCode).
			Int("nodes", stats.Nodes).
			Int("edges", stats.Edges).
			Int("errors", len(stats.Errors)).
			Bool("root_missing", stats.RootMissing).
			Dur("elapsed", stats.Elapsed).
			Msg("country complete")

		if ctx.Err() != nil {
			logger.L().Warn().Msg("run canceled, stopping")
			break
		}
	}

	summary.Elapsed = time.Since(start)
	logger.L().Info().
		Int("countries", len(summary.Runs)).
		Int("skipped", len(summary.Skipped)).
		Int("total_nodes", summary.TotalNodes).
		Int("total_edges", summary.TotalEdges).
		Int("total_errors", summary.TotalErrors).
		Dur("elapsed", summary.Elapsed).
		Msg("import complete")

	return summary, nil
}

func (s *Summary) add(stats *RunStats) {
	s.Runs = append(s.Runs, stats)
	s.TotalNodes += stats.Nodes
	s.TotalEdges += stats.Edges
	s.TotalErrors += len(stats.Errors)
}

// Report renders the summary as a plain-text block for CLI output.
func (s *Summary) Report() string {
	var b strings.Builder
	for _, run := range s.Runs {
		fmt.Fprintf(&b, "%-3s nodes=%-6d edges=%-6d elapsed=%s", run.CountryCode, run.Nodes, run.Edges, run.Elapsed.Round(time.Millisecond))
		if run.RootMissing {
			b.WriteString("  (root not found)")
		}
		if levels := formatLevels(run.ByLevel); levels != "" {
			b.WriteString("  levels ")
			b.WriteString(levels)
		}
		b.WriteByte('\n')
		for _, e := range run.Errors {
			fmt.Fprintf(&b, "    ! %s\n", e)
		}
	}
	for _, name := range s.Skipped {
		fmt.Fprintf(&b, "--  skipped %q: no country code\n", name)
	}
	fmt.Fprintf(&b, "total: %d nodes, %d edges, %d errors in %s\n",
		s.TotalNodes, s.TotalEdges, s.TotalErrors, s.Elapsed.Round(time.Millisecond))
	return b.String()
}

func formatLevels(byLevel map[int]int) string {
	if len(byLevel) == 0 {
		return ""
	}
	levels := make([]int, 0, len(byLevel))
	for l := range byLevel {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	parts := make([]string, 0, len(levels))
	for _, l := range levels {
		parts = append(parts, fmt.Sprintf("%d:%d", l, byLevel[l]))
	}
	return strings.Join(parts, " ")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
