package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"forgedeck/internal/cache"
	"forgedeck/internal/forge"
)

const defaultTaskTimeout = 15 * time.Second

// Option customizes Dispatcher construction, mainly for tests.
type Option func(*Dispatcher)

// WithTimeout bounds each task's network window.
func WithTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.timeout = d
		}
	}
}

// WithClock injects the time source used for staleness decisions.
func WithClock(now func() time.Time) Option {
	return func(disp *Dispatcher) {
		if now != nil {
			disp.now = now
		}
	}
}

// WithOpener overrides how OpenExternal launches URLs.
func WithOpener(open func(url string) error) Option {
	return func(disp *Dispatcher) {
		if open != nil {
			disp.openURL = open
		}
	}
}

// WithClipboard overrides how CopyClipboard writes text.
func WithClipboard(write func(text string) error) Option {
	return func(disp *Dispatcher) {
		if write != nil {
			disp.writeClip = write
		}
	}
}

// Dispatcher turns commands into concurrent tasks against the cache and
// the forge registry. Exactly one Message is (eventually) emitted per
// command, except stale-while-revalidate fetches which emit the cached
// value first and the refreshed value when it lands.
type Dispatcher struct {
	forges  *forge.Registry
	cache   *cache.Manager
	log     *zap.Logger
	out     chan Message
	flight  singleflight.Group
	timeout time.Duration
	now     func() time.Time

	openURL   func(url string) error
	writeClip func(text string) error
}

// New wires a dispatcher to its collaborators.
func New(forges *forge.Registry, cm *cache.Manager, log *zap.Logger, opts ...Option) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{
		forges:    forges,
		cache:     cm,
		log:       log,
		out:       make(chan Message, 128),
		timeout:   defaultTaskTimeout,
		now:       time.Now,
		openURL:   openInBrowser,
		writeClip: clipboard.WriteAll,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Messages is the serialized result stream. The UI loop is the single
// consumer; delivery order is receipt order, not issuance order.
func (d *Dispatcher) Messages() <-chan Message { return d.out }

// Dispatch starts the task for one command under the given epoch and
// returns immediately.
func (d *Dispatcher) Dispatch(cmd Command, epoch uint64) {
	switch c := cmd.(type) {
	case Fetch:
		if c.Force {
			d.cache.Invalidate(c.Key)
		}
		d.fetch(c.Key, epoch)
	case FetchPage:
		go d.fetchPage(c.Key, c.Page, epoch)
	case Mutate:
		go d.mutate(c.Key, c.Op, epoch)
	case OpenExternal:
		go d.sideEffect(epoch, "opened in browser", func() error { return d.openURL(c.URL) })
	case CopyClipboard:
		go d.sideEffect(epoch, "copied to clipboard", func() error { return d.writeClip(c.Text) })
	default:
		// A command the dispatcher cannot execute is a programming error
		// in the reducer, not a runtime condition.
		panic(fmt.Sprintf("dispatch: unknown command %T", cmd))
	}
}

// fetch implements the stale-while-revalidate read path: serve whatever
// the cache has immediately, then refresh in the background when the entry
// is missing or past its TTL. Refreshes for the same key collapse into one
// provider call via singleflight.
func (d *Dispatcher) fetch(key forge.ResourceKey, epoch uint64) {
	entry, ok := d.cache.Get(key)
	if ok {
		d.emit(d.success(epoch, key, entry.Value, entry.FetchedAt, true))
		if !d.cache.Stale(entry, d.now()) {
			return
		}
	}
	go d.refresh(key, epoch)
}

// refresh performs (or joins) the single in-flight network task for key.
// The cache write happens inside the shared flight, so it survives even
// when every interested epoch has moved on by completion time.
func (d *Dispatcher) refresh(key forge.ResourceKey, epoch uint64) {
	type fetched struct {
		value any
		at    time.Time
	}
	v, err, _ := d.flight.Do(key.String(), func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		value, err := d.fetchValue(ctx, key)
		if err != nil {
			return nil, d.taskError(err)
		}
		at := d.now()
		d.cache.Put(key, value, at)
		return fetched{value: value, at: at}, nil
	})
	if err != nil {
		d.log.Debug("fetch failed",
			zap.String("key", key.String()), zap.Error(err))
		d.emit(d.failure(epoch, key, err))
		return
	}
	f := v.(fetched)
	d.emit(d.success(epoch, key, f.value, f.at, false))
}

// fetchPage loads one additional page of a list. Never cached: page one is
// the canonical cache entry, later pages are transient view data.
func (d *Dispatcher) fetchPage(key forge.ResourceKey, page int, epoch uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	value, err := d.fetchList(ctx, key, page)
	if err != nil {
		d.emit(d.failure(epoch, key, d.taskError(err)))
		return
	}
	msg := d.success(epoch, key, value, d.now(), false)
	msg.Page = page
	d.emit(msg)
}

// mutate always goes to the provider; cache entries touched by the
// mutation are invalidated before success is reported, so the next fetch
// observes the post-mutation remote state.
func (d *Dispatcher) mutate(key forge.ResourceKey, op Mutation, epoch uint64) {
	f, err := d.forges.Resolve(key.Provider)
	if err != nil {
		d.emit(d.failure(epoch, key, err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	number, _ := strconv.Atoi(key.ID)
	switch op.Kind {
	case MutateMergePull:
		err = f.MergePull(ctx, key.Owner, key.Repo, number, op.Method)
	case MutateClosePull:
		err = f.ClosePull(ctx, key.Owner, key.Repo, number)
	case MutateCloseIssue:
		err = f.CloseIssue(ctx, key.Owner, key.Repo, number)
	case MutateComment:
		err = f.Comment(ctx, key.Owner, key.Repo, number, op.Body)
	case MutateReview:
		err = f.SubmitReview(ctx, key.Owner, key.Repo, number, op.Event, op.Body)
	default:
		err = fmt.Errorf("dispatch: unknown mutation %d", op.Kind)
	}
	if err != nil {
		d.emit(d.failure(epoch, key, d.taskError(err)))
		return
	}
	d.cache.Invalidate(invalidationSet(key)...)
	msg := d.success(epoch, key, nil, d.now(), false)
	msg.Mutation = &op
	d.emit(msg)
}

func (d *Dispatcher) sideEffect(epoch uint64, note string, run func() error) {
	if err := run(); err != nil {
		d.emit(d.failure(epoch, forge.ResourceKey{}, err))
		return
	}
	d.emit(d.notice(epoch, note))
}

// invalidationSet lists every cache key a successful mutation on key may
// have made stale: the resource itself, its sibling detail kinds, the
// containing list, and the home aggregate.
func invalidationSet(key forge.ResourceKey) []forge.ResourceKey {
	scoped := func(kind forge.Kind, id string) forge.ResourceKey {
		return forge.ResourceKey{
			Provider: key.Provider, Owner: key.Owner, Repo: key.Repo,
			Kind: kind, ID: id,
		}
	}
	switch key.Kind {
	case forge.KindPullDetail:
		return []forge.ResourceKey{
			key,
			scoped(forge.KindPullDiff, key.ID),
			scoped(forge.KindCheckStatus, key.ID),
			scoped(forge.KindPullList, ""),
			{Provider: key.Provider, Kind: forge.KindHome},
		}
	case forge.KindIssue:
		return []forge.ResourceKey{
			scoped(forge.KindIssueList, ""),
			{Provider: key.Provider, Kind: forge.KindHome},
		}
	default:
		return []forge.ResourceKey{key}
	}
}

// fetchValue routes a refresh to the provider operation for the key's kind.
func (d *Dispatcher) fetchValue(ctx context.Context, key forge.ResourceKey) (any, error) {
	switch key.Kind {
	case forge.KindRepoList, forge.KindPullList, forge.KindIssueList,
		forge.KindCommitList, forge.KindRunList:
		return d.fetchList(ctx, key, 1)
	case forge.KindHome:
		return d.fetchHome(ctx, key)
	case forge.KindPullDetail:
		f, err := d.forges.Resolve(key.Provider)
		if err != nil {
			return nil, err
		}
		number, _ := strconv.Atoi(key.ID)
		return f.GetPull(ctx, key.Owner, key.Repo, number)
	case forge.KindPullDiff:
		f, err := d.forges.Resolve(key.Provider)
		if err != nil {
			return nil, err
		}
		number, _ := strconv.Atoi(key.ID)
		return f.PullDiff(ctx, key.Owner, key.Repo, number)
	case forge.KindCommit:
		f, err := d.forges.Resolve(key.Provider)
		if err != nil {
			return nil, err
		}
		return f.GetCommit(ctx, key.Owner, key.Repo, key.ID)
	case forge.KindCheckStatus:
		f, err := d.forges.Resolve(key.Provider)
		if err != nil {
			return nil, err
		}
		number, _ := strconv.Atoi(key.ID)
		return f.CheckStatus(ctx, key.Owner, key.Repo, number)
	default:
		return nil, fmt.Errorf("dispatch: unfetchable kind %q", key.Kind)
	}
}

func (d *Dispatcher) fetchList(ctx context.Context, key forge.ResourceKey, page int) (any, error) {
	f, err := d.forges.Resolve(key.Provider)
	if err != nil {
		return nil, err
	}
	switch key.Kind {
	case forge.KindRepoList:
		return f.ListRepos(ctx, page)
	case forge.KindPullList:
		return f.ListPulls(ctx, key.Owner, key.Repo, page)
	case forge.KindIssueList:
		return f.ListIssues(ctx, key.Owner, key.Repo, page)
	case forge.KindCommitList:
		return f.ListCommits(ctx, key.Owner, key.Repo, page)
	case forge.KindRunList:
		return f.ListRuns(ctx, key.Owner, key.Repo, page)
	default:
		return nil, fmt.Errorf("dispatch: %q is not a list kind", key.Kind)
	}
}

// fetchHome resolves the current user once and loads both home sections
// concurrently.
func (d *Dispatcher) fetchHome(ctx context.Context, key forge.ResourceKey) (any, error) {
	f, err := d.forges.Resolve(key.Provider)
	if err != nil {
		return nil, err
	}
	user, err := f.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	var home forge.HomeData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reqs, err := f.ReviewRequests(gctx, user)
		if err != nil {
			return err
		}
		home.ReviewRequests = reqs
		return nil
	})
	g.Go(func() error {
		pulls, err := f.MyPulls(gctx, user)
		if err != nil {
			return err
		}
		home.MyPulls = pulls
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return home, nil
}

// taskError folds context expiry into the typed error enum so timeouts
// reach the user as an ordinary failure, distinct from an epoch discard.
func (d *Dispatcher) taskError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return forge.Errorf(forge.ErrNetwork, "timed out after %s", d.timeout)
	}
	return err
}

func (d *Dispatcher) emit(m Message) {
	d.out <- m
}
