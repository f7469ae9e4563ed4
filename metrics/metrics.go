package metrics

import (
	"context"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var defaultMillisecondsDistribution = view.Distribution(0.01, 0.05, 0.1, 0.3, 0.6, 0.8, 1, 2, 3, 4, 5, 6, 8, 10, 13, 16, 20, 25, 30, 40, 50, 65, 80, 100, 130, 160, 200, 250, 300, 400, 500, 650, 800, 1000, 2000, 5000, 10000, 20000, 30000, 50000, 100000, 200000, 500000, 1000000)

var (
	Step, _    = tag.NewKey("step")    // stage of an upgrade run
	API, _     = tag.NewKey("api")     // name of method on the ledger api
	Network, _ = tag.NewKey("network") // name of the configured network
)

var (
	LedgerRequestDuration = stats.Float64("ledger_request_duration_ms", "Duration of ledger api requests", stats.UnitMilliseconds)
	StepDuration          = stats.Float64("step_duration_ms", "Time taken by a stage of an upgrade run", stats.UnitMilliseconds)
	FinalityWaitDuration  = stats.Float64("finality_wait_duration_ms", "Time spent waiting for a transaction to be finalized", stats.UnitMilliseconds)
	TransactionSubmitted  = stats.Int64("transaction_submitted", "Number of transactions submitted", stats.UnitDimensionless)
	TransactionRejected   = stats.Int64("transaction_rejected", "Number of transactions rejected by the ledger", stats.UnitDimensionless)
	RunStart              = stats.Int64("run_start", "Number of upgrade runs started", stats.UnitDimensionless)
	RunComplete           = stats.Int64("run_complete", "Number of upgrade runs completed without error", stats.UnitDimensionless)
	RunError              = stats.Int64("run_error", "Number of upgrade runs stopped by an error", stats.UnitDimensionless)
)

var DefaultViews = []*view.View{
	{
		Measure:     LedgerRequestDuration,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{API},
	},
	{
		Name:        "ledger_request_total",
		Measure:     LedgerRequestDuration,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{API},
	},
	{
		Measure:     StepDuration,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{Step, Network},
	},
	{
		Measure:     FinalityWaitDuration,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{Network},
	},
	{
		Name:        TransactionSubmitted.Name() + "_total",
		Measure:     TransactionSubmitted,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Step, Network},
	},
	{
		Name:        TransactionRejected.Name() + "_total",
		Measure:     TransactionRejected,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Step, Network},
	},
	{
		Name:        RunStart.Name() + "_total",
		Measure:     RunStart,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Network},
	},
	{
		Name:        RunComplete.Name() + "_total",
		Measure:     RunComplete,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Network},
	},
	{
		Name:        RunError.Name() + "_total",
		Measure:     RunError,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Network},
	},
}

// SinceInMilliseconds returns the duration of time since the provide time as a float64.
func SinceInMilliseconds(startTime time.Time) float64 {
	return float64(time.Since(startTime).Nanoseconds()) / 1e6
}

// Timer is a function stopwatch, calling it starts the timer,
// calling the returned function will record the duration.
func Timer(ctx context.Context, m *stats.Float64Measure) func() {
	start := time.Now()
	return func() {
		stats.Record(ctx, m.M(SinceInMilliseconds(start)))
	}
}

// RecordInc is a convenience function that increments a counter.
func RecordInc(ctx context.Context, m *stats.Int64Measure) {
	stats.Record(ctx, m.M(1))
}

// WithTagValue is a convenience function that upserts the tag value in the given context.
func WithTagValue(ctx context.Context, k tag.Key, v string) context.Context {
	ctx, _ = tag.New(ctx, tag.Upsert(k, v))
	return ctx
}
