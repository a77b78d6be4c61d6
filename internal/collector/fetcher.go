package collector

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/cache"
	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/metrics"
	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/models"
)

// Source is the upstream client contract the fetcher drives. Implementations
// classify their failures as *models.FetchError.
type Source interface {
	FetchInterestOverTime(ctx context.Context, keywords []string, timeframe models.Timeframe, geo string, granularity models.Granularity) (*models.RawSeries, error)
}

// Options configure a Fetcher.
type Options struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	Backoff        Backoff
	Limiter        *rate.Limiter
	Cache          cache.Provider
	CacheTTL       time.Duration
	Sleeper        Sleeper
	Logger         *slog.Logger
}

// Fetcher executes one logical sub-batch request with bounded retries, a
// shared rate budget, and an optional read-through cache. Retries are
// sequential; concurrency happens across fetchers, never within one call.
type Fetcher struct {
	source         Source
	maxAttempts    int
	attemptTimeout time.Duration
	backoff        Backoff
	limiter        *rate.Limiter
	cache          cache.Provider
	cacheTTL       time.Duration
	sleeper        Sleeper
	logger         *slog.Logger
}

// NewFetcher constructs a Fetcher around the given source.
func NewFetcher(source Source, opts Options) *Fetcher {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 5
	}
	if opts.Cache == nil {
		opts.Cache = cache.NoopProvider{}
	}
	if opts.Sleeper == nil {
		opts.Sleeper = ClockSleeper{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Fetcher{
		source:         source,
		maxAttempts:    opts.MaxAttempts,
		attemptTimeout: opts.AttemptTimeout,
		backoff:        opts.Backoff,
		limiter:        opts.Limiter,
		cache:          opts.Cache,
		cacheTTL:       opts.CacheTTL,
		sleeper:        opts.Sleeper,
		logger:         opts.Logger,
	}
}

// Fetch retrieves one sub-batch at one granularity. Transient failures are
// retried up to the attempt budget with exponential backoff; invalid requests
// fail immediately. The returned error is always a *models.FetchError carrying
// the attempts actually made.
func (f *Fetcher) Fetch(ctx context.Context, keywords []string, timeframe models.Timeframe, geo string, granularity models.Granularity) (*models.RawSeries, error) {
	if f.source == nil {
		return nil, models.NewFetchError(models.FailureInvalid, 0, errors.New("no source configured"))
	}

	key := f.cacheKey(keywords, timeframe, geo, granularity)
	if raw := f.fromCache(ctx, key); raw != nil {
		metrics.ObserveCacheLookup(true)
		return raw, nil
	}
	metrics.ObserveCacheLookup(false)

	var last *models.FetchError
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.ObserveFetchRetry()
			if err := f.sleeper.Sleep(ctx, f.backoff.Delay(attempt-1)); err != nil {
				return nil, models.NewFetchError(lastKind(last), attempt-1, err)
			}
		}
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, models.NewFetchError(lastKind(last), attempt-1, err)
			}
		}

		raw, err := f.attempt(ctx, keywords, timeframe, geo, granularity)
		if err == nil {
			metrics.ObserveFetchAttempt(true)
			f.store(ctx, key, raw)
			return raw, nil
		}
		metrics.ObserveFetchAttempt(false)

		last = asFetchError(err)
		f.logger.Warn("fetch attempt failed",
			slog.String("keywords", strings.Join(keywords, ",")),
			slog.String("granularity", string(granularity)),
			slog.Int("attempt", attempt),
			slog.String("kind", string(last.Kind)),
			slog.Any("error", last.Err),
		)

		if !last.Kind.Retryable() {
			return nil, models.NewFetchError(last.Kind, attempt, last.Err)
		}
		if ctx.Err() != nil {
			return nil, models.NewFetchError(last.Kind, attempt, ctx.Err())
		}
	}

	return nil, models.NewFetchError(lastKind(last), f.maxAttempts, last.Err)
}

func (f *Fetcher) attempt(ctx context.Context, keywords []string, timeframe models.Timeframe, geo string, granularity models.Granularity) (*models.RawSeries, error) {
	attemptCtx := ctx
	if f.attemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, f.attemptTimeout)
		defer cancel()
	}
	return f.source.FetchInterestOverTime(attemptCtx, keywords, timeframe, geo, granularity)
}

func (f *Fetcher) cacheKey(keywords []string, timeframe models.Timeframe, geo string, granularity models.Granularity) string {
	parts := make([]string, 0, len(keywords)+4)
	parts = append(parts, keywords...)
	parts = append(parts,
		timeframe.Start.Format("2006-01-02"),
		timeframe.End.Format("2006-01-02"),
		geo,
		string(granularity),
	)
	return cache.Key(parts...)
}

func (f *Fetcher) fromCache(ctx context.Context, key string) *models.RawSeries {
	payload, err := f.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			f.logger.Debug("cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		return nil
	}
	var raw models.RawSeries
	if err := json.Unmarshal(payload, &raw); err != nil {
		f.logger.Debug("cache payload unreadable", slog.String("key", key), slog.Any("error", err))
		_ = f.cache.Del(ctx, key)
		return nil
	}
	return &raw
}

func (f *Fetcher) store(ctx context.Context, key string, raw *models.RawSeries) {
	payload, err := json.Marshal(raw)
	if err != nil {
		return
	}
	if err := f.cache.Set(ctx, key, payload, f.cacheTTL); err != nil {
		f.logger.Debug("cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}

// asFetchError coerces any failure into the retry taxonomy.
func asFetchError(err error) *models.FetchError {
	var fe *models.FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return models.NewFetchError(models.FailureUnknown, 1, err)
}

func lastKind(last *models.FetchError) models.FailureKind {
	if last == nil {
		return models.FailureUnknown
	}
	return last.Kind
}
