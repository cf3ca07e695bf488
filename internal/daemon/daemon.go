// Package daemon runs the crawl and engagement rounds on their configured
// intervals.
package daemon

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/lornebot/torstats/internal/crawl"
	"github.com/lornebot/torstats/internal/engage"
)

// Daemon schedules recurring crawl and engagement rounds. Rounds of the
// same kind never overlap; a round still running when its next tick fires
// makes the tick a no-op.
type Daemon struct {
	engine   *crawl.Engine
	analyzer *engage.Analyzer
	cron     *cron.Cron

	crawlSpec  string
	engageSpec string
	scanFirst  bool

	mu         sync.Mutex
	crawlBusy  bool
	engageBusy bool
}

// Options configure the daemon intervals in seconds.
type Options struct {
	CrawlIntervalSeconds  int
	EngageIntervalSeconds int
	ScanAtStartup         bool
}

func New(engine *crawl.Engine, analyzer *engage.Analyzer, opts Options) *Daemon {
	return &Daemon{
		engine:     engine,
		analyzer:   analyzer,
		cron:       cron.New(),
		crawlSpec:  fmt.Sprintf("@every %ds", opts.CrawlIntervalSeconds),
		engageSpec: fmt.Sprintf("@every %ds", opts.EngageIntervalSeconds),
		scanFirst:  opts.ScanAtStartup,
	}
}

// Run schedules both jobs and blocks until the context is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	if _, err := d.cron.AddFunc(d.crawlSpec, func() { d.crawlRound(ctx) }); err != nil {
		return fmt.Errorf("scheduling crawl job: %w", err)
	}
	if _, err := d.cron.AddFunc(d.engageSpec, func() { d.engageRound(ctx) }); err != nil {
		return fmt.Errorf("scheduling engagement job: %w", err)
	}

	d.cron.Start()
	log.Printf("scheduler started, crawling %s, refreshing engagement %s", d.crawlSpec, d.engageSpec)

	if d.scanFirst {
		log.Printf("running initial scan at startup")
		d.crawlRound(ctx)
		d.engageRound(ctx)
	}

	<-ctx.Done()

	stopped := d.cron.Stop()
	<-stopped.Done()
	log.Printf("scheduler stopped")
	return ctx.Err()
}

func (d *Daemon) crawlRound(ctx context.Context) {
	if !d.acquire(&d.crawlBusy) {
		log.Printf("previous crawl round still running, skipping tick")
		return
	}
	defer d.release(&d.crawlBusy)

	r, err := d.engine.ScanAll(ctx)
	if err != nil {
		log.Printf("crawl round aborted: %v", err)
		return
	}
	log.Printf("crawl round done: %d users, %d comments, %d transcriptions (%d new), %d invalidated",
		r.Users, r.Scanned, r.Transcriptions, r.NewTranscriptions, r.Invalidated)
}

func (d *Daemon) engageRound(ctx context.Context) {
	if !d.acquire(&d.engageBusy) {
		log.Printf("previous engagement round still running, skipping tick")
		return
	}
	defer d.release(&d.engageBusy)

	r, err := d.analyzer.RefreshAll(ctx)
	if err != nil {
		log.Printf("engagement round aborted: %v", err)
		return
	}
	log.Printf("engagement round done: %d checked, %d updated, %d errors", r.Checked, r.Updated, r.Errors)
}

func (d *Daemon) acquire(flag *bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if *flag {
		return false
	}
	*flag = true
	return true
}

func (d *Daemon) release(flag *bool) {
	d.mu.Lock()
	*flag = false
	d.mu.Unlock()
}
