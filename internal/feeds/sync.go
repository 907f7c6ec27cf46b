package feeds

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/killallgit/castero/internal/models"
	"github.com/killallgit/castero/internal/store"
)

// DefaultWorkers is the fixed budget of parallel feed downloads.
const DefaultWorkers = 3

// Engine drives the concurrent refresh of many feeds. Network-backed
// feeds fan out to a bounded worker pool; file-backed feeds are
// processed sequentially once network work completes. A refresh runs
// to completion; individual feeds may fail and are counted.
type Engine struct {
	store      store.Store
	fetcher    *Fetcher
	reconciler *Reconciler
	sink       StatusSink
	workers    int

	done    atomic.Int64
	errs    atomic.Int64
	running atomic.Bool
}

func NewEngine(s store.Store, fetcher *Fetcher, reconciler *Reconciler, sink StatusSink) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	return &Engine{
		store:      s,
		fetcher:    fetcher,
		reconciler: reconciler,
		sink:       sink,
		workers:    DefaultWorkers,
	}
}

// Start launches a reload on a background goroutine and returns a
// channel that closes when it completes. The UI polls the channel on
// its tick; there is no cancellation once started.
func (e *Engine) Start(feedList []models.Feed) <-chan struct{} {
	completed := make(chan struct{})
	go func() {
		defer close(completed)
		if err := e.Reload(context.Background(), feedList); err != nil {
			log.Printf("reload failed: %v", err)
		}
	}()
	return completed
}

// Running reports whether a reload is in flight.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Reload refreshes the given feeds, or every stored feed when the
// list is nil, and blocks until all of them have been attempted.
func (e *Engine) Reload(ctx context.Context, feedList []models.Feed) error {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("a reload is already running")
	}
	defer e.running.Store(false)

	if feedList == nil {
		all, err := e.store.Feeds(ctx)
		if err != nil {
			return err
		}
		feedList = all
	}

	e.done.Store(0)
	e.errs.Store(0)
	total := len(feedList)

	var urlFeeds, fileFeeds []models.Feed
	known := make(map[string]models.Feed, total)
	for _, feed := range feedList {
		known[feed.Key] = feed
		if feed.IsURL() {
			urlFeeds = append(urlFeeds, feed)
		} else {
			fileFeeds = append(fileFeeds, feed)
		}
	}

	work := make(chan models.Feed)
	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for feed := range work {
				e.refreshURL(ctx, feed, known, total)
			}
		}()
	}
	for _, feed := range urlFeeds {
		work <- feed
	}
	close(work)
	wg.Wait()

	for _, feed := range fileFeeds {
		e.refreshFile(ctx, feed, total)
	}

	succeeded := total - int(e.errs.Load())
	e.sink.ChangeStatus(fmt.Sprintf("Successfully reloaded %d feeds", succeeded))
	e.sink.InvalidateMenus()
	return nil
}

func (e *Engine) refreshURL(ctx context.Context, feed models.Feed, known map[string]models.Feed, total int) {
	resp, err := e.fetcher.Fetch(ctx, feed.Key)
	if err != nil {
		e.reportError(feed.Key, err, total)
		return
	}
	defer resp.Body.Close()

	// The response may have been redirected; associate it back to the
	// feed that originated the request.
	owner, ok := resolveFeed(resp, known)
	if !ok {
		e.reportError(feed.Key, fmt.Errorf("response for %s matches no known feed", resp.Request.URL), total)
		return
	}

	parsed, err := Parse(resp.Body, owner.Key)
	if err != nil {
		e.reportError(owner.Key, err, total)
		return
	}
	if err := e.reconciler.Reconcile(ctx, &owner, parsed); err != nil {
		e.reportError(owner.Key, err, total)
		return
	}
	e.reportDone(total)
}

func (e *Engine) refreshFile(ctx context.Context, feed models.Feed, total int) {
	parsed, err := ParseFile(feed.Key)
	if err != nil {
		e.reportError(feed.Key, err, total)
		return
	}
	if err := e.reconciler.Reconcile(ctx, &feed, parsed); err != nil {
		e.reportError(feed.Key, err, total)
		return
	}
	e.reportDone(total)
}

// resolveFeed maps a response back to its originating feed: first the
// request URL, then each URL of the redirect history.
func resolveFeed(resp *http.Response, known map[string]models.Feed) (models.Feed, bool) {
	for req := resp.Request; req != nil; {
		if feed, ok := known[req.URL.String()]; ok {
			return feed, true
		}
		if req.Response == nil {
			break
		}
		req = req.Response.Request
	}
	return models.Feed{}, false
}

func (e *Engine) reportDone(total int) {
	done := e.done.Add(1)
	e.emitProgress(done, total)
}

func (e *Engine) reportError(key string, err error, total int) {
	log.Printf("refreshing %s: %v", key, err)
	e.errs.Add(1)
	done := e.done.Add(1)
	e.emitProgress(done, total)
}

func (e *Engine) emitProgress(done int64, total int) {
	errs := e.errs.Load()
	status := fmt.Sprintf("Reloading feeds (%d/%d)", done, total)
	if errs > 0 {
		status += fmt.Sprintf(" (%d errors)", errs)
	}
	e.sink.ChangeStatus(status)
}
