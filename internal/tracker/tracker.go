package tracker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"rvolkov/toritracker/internal/fetcher"
	"rvolkov/toritracker/logger"
	apperr "rvolkov/toritracker/pkg/errors"
)

const (
	// maxHistory caps the rolling per-job history of reported listings.
	maxHistory = 50

	// maxSeenLinks caps the per-job seen-set. The trailing time window is
	// the primary "new" test; the seen-set only suppresses repeats whose
	// site timestamp keeps them inside the window across ticks.
	maxSeenLinks = 512

	// itemBudgetUnit sizes the per-tick fetch limit: one listing per this
	// much tick interval, so scrape volume stays proportional to cadence.
	itemBudgetUnit = time.Minute

	expiryNoticeTimeout = 30 * time.Second
)

// Searcher is the fetch contract the tracker drives on every tick.
type Searcher interface {
	Fetch(ctx context.Context, spec fetcher.FilterSpec, cursor fetcher.Cursor, limit int) (fetcher.Cursor, []fetcher.Listing, error)
}

// JobInfo is the externally visible state of a tracker job.
type JobInfo struct {
	ID          string             `json:"id"`
	Destination string             `json:"destination"`
	Spec        fetcher.FilterSpec `json:"spec"`
	CreatedAt   time.Time          `json:"created_at"`
	ExpiresAt   time.Time          `json:"expires_at"`
}

type job struct {
	info     JobInfo
	interval time.Duration
	cancel   context.CancelFunc

	mu        sync.Mutex
	seen      map[string]struct{}
	seenOrder []string
	history   []fetcher.Listing
}

// Tracker owns a set of recurring search jobs. Jobs run in their own
// goroutines: a slow or failing fetch in one never delays another's tick.
type Tracker struct {
	ctx      context.Context
	searcher Searcher
	notifier Notifier
	log      *logger.Logger

	mu   sync.Mutex
	jobs map[string]*job
	wg   sync.WaitGroup

	now func() time.Time
}

// New creates a tracker. ctx bounds the lifetime of every job it schedules.
func New(ctx context.Context, searcher Searcher, notifier Notifier) *Tracker {
	return &Tracker{
		ctx:      ctx,
		searcher: searcher,
		notifier: notifier,
		log:      logger.ForTracker(),
		jobs:     make(map[string]*job),
		now:      time.Now,
	}
}

// Schedule registers a recurring search for spec and starts ticking. The job
// re-fetches from the newest item every tickInterval and self-cancels after
// maxLifetime with a single expiry notice.
func (t *Tracker) Schedule(spec fetcher.FilterSpec, destination string, tickInterval, maxLifetime time.Duration) (JobInfo, error) {
	if destination == "" {
		return JobInfo{}, apperr.NewValidation("tracker", "destination must not be empty")
	}
	if tickInterval <= 0 {
		return JobInfo{}, apperr.NewValidation("tracker", "tick interval must be positive")
	}
	if maxLifetime < tickInterval {
		return JobInfo{}, apperr.NewValidation("tracker", "lifetime must cover at least one tick")
	}

	now := t.now()
	jctx, cancel := context.WithCancel(t.ctx)
	j := &job{
		info: JobInfo{
			ID:          uuid.NewString(),
			Destination: destination,
			Spec:        spec,
			CreatedAt:   now,
			ExpiresAt:   now.Add(maxLifetime),
		},
		interval: tickInterval,
		cancel:   cancel,
		seen:     make(map[string]struct{}),
	}

	t.mu.Lock()
	t.jobs[j.info.ID] = j
	t.mu.Unlock()

	t.wg.Add(1)
	go t.run(jctx, j, maxLifetime)

	t.log.Info().
		Str("job_id", j.info.ID).
		Str("destination", destination).
		Dur("interval", tickInterval).
		Dur("lifetime", maxLifetime).
		Str("filters", spec.Describe()).
		Msg("Tracker scheduled")

	return j.info, nil
}

// Cancel stops the job with the given id. Returns whether it was active. An
// in-flight tick is allowed to finish; the job never fires again.
func (t *Tracker) Cancel(id string) bool {
	t.mu.Lock()
	j, ok := t.jobs[id]
	if ok {
		delete(t.jobs, id)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}
	j.cancel()
	t.log.Info().Str("job_id", id).Msg("Tracker cancelled")
	return true
}

// CancelAll stops every active job and returns how many were cancelled.
func (t *Tracker) CancelAll() int {
	t.mu.Lock()
	jobs := make([]*job, 0, len(t.jobs))
	for _, j := range t.jobs {
		jobs = append(jobs, j)
	}
	t.jobs = make(map[string]*job)
	t.mu.Unlock()

	for _, j := range jobs {
		j.cancel()
	}
	if len(jobs) > 0 {
		t.log.Info().Int("count", len(jobs)).Msg("All trackers cancelled")
	}
	return len(jobs)
}

// List returns the active jobs, oldest first.
func (t *Tracker) List() []JobInfo {
	t.mu.Lock()
	infos := make([]JobInfo, 0, len(t.jobs))
	for _, j := range t.jobs {
		infos = append(infos, j.info)
	}
	t.mu.Unlock()

	sort.Slice(infos, func(i, k int) bool {
		return infos[i].CreatedAt.Before(infos[k].CreatedAt)
	})
	return infos
}

// History returns a copy of the rolling set of listings a job has reported.
func (t *Tracker) History(id string) []fetcher.Listing {
	t.mu.Lock()
	j, ok := t.jobs[id]
	t.mu.Unlock()
	if !ok {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]fetcher.Listing, len(j.history))
	copy(out, j.history)
	return out
}

// Wait blocks until all job goroutines have exited. Meant for shutdown, after
// the tracker's base context is cancelled or CancelAll was called.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

func (t *Tracker) run(ctx context.Context, j *job, lifetime time.Duration) {
	defer t.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	expiry := time.NewTimer(lifetime)
	defer expiry.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-expiry.C:
			t.expire(ctx, j)
			return
		case <-ticker.C:
			t.tick(ctx, j)
		}
	}
}

func (t *Tracker) expire(ctx context.Context, j *job) {
	t.mu.Lock()
	_, active := t.jobs[j.info.ID]
	delete(t.jobs, j.info.ID)
	t.mu.Unlock()

	// A concurrent Cancel got there first; the expiry notice is not owed.
	if !active || ctx.Err() != nil {
		return
	}

	nctx, cancel := context.WithTimeout(ctx, expiryNoticeTimeout)
	defer cancel()
	if err := t.notifier.OnTrackerExpired(nctx, j.info.Destination, j.info.Spec); err != nil {
		t.log.Error().Err(err).Str("job_id", j.info.ID).Msg("Failed to deliver expiry notice")
	}
	j.cancel()

	t.log.Info().Str("job_id", j.info.ID).Msg("Tracker expired")
}

// tick runs one scheduled fetch. Any failure degrades to "zero new items";
// the next tick retries naturally.
func (t *Tracker) tick(ctx context.Context, j *job) {
	limit := tickLimit(j.interval)

	// A tick never outlives its own interval.
	fctx, cancel := context.WithTimeout(ctx, j.interval)
	_, items, err := t.searcher.Fetch(fctx, j.info.Spec, fetcher.Cursor{}, limit)
	cancel()
	if err != nil {
		t.log.Warn().Err(err).Str("job_id", j.info.ID).Msg("Tick fetch failed, will retry on the next tick")
		return
	}

	fresh := t.selectNew(j, items)
	if len(fresh) == 0 {
		t.log.Debug().Str("job_id", j.info.ID).Msg("No new listings this tick")
		return
	}

	// Cancelled while the fetch was in flight: finish quietly, never emit.
	if ctx.Err() != nil {
		return
	}

	if err := t.notifier.OnNewListings(ctx, j.info.Destination, j.info.Spec, fresh); err != nil {
		t.log.Error().Err(err).Str("job_id", j.info.ID).Msg("Failed to deliver new listings")
		return
	}
	t.log.Info().Str("job_id", j.info.ID).Int("count", len(fresh)).Msg("New listings reported")
}

// tickLimit sizes the per-tick fetch so scrape volume stays proportional to
// the tick cadence: one listing per minute of interval, at least one.
func tickLimit(interval time.Duration) int {
	limit := int(interval / itemBudgetUnit)
	if limit < 1 {
		limit = 1
	}
	return limit
}

// selectNew keeps the listings that fall inside the trailing tick window and
// have not been reported before, then merges them into the job's bounded
// history and seen-set.
func (t *Tracker) selectNew(j *job, items []fetcher.Listing) []fetcher.Listing {
	watermark := t.now().Add(-j.interval)

	j.mu.Lock()
	defer j.mu.Unlock()

	var fresh []fetcher.Listing
	for _, item := range items {
		if !item.PostedAt.After(watermark) {
			continue
		}
		if _, reported := j.seen[item.Link]; reported {
			continue
		}
		fresh = append(fresh, item)

		j.seen[item.Link] = struct{}{}
		j.seenOrder = append(j.seenOrder, item.Link)
		if len(j.seenOrder) > maxSeenLinks {
			oldest := j.seenOrder[0]
			j.seenOrder = j.seenOrder[1:]
			delete(j.seen, oldest)
		}
	}

	if len(fresh) > 0 {
		j.history = append(j.history, fresh...)
		if overflow := len(j.history) - maxHistory; overflow > 0 {
			j.history = j.history[overflow:]
		}
	}
	return fresh
}
