// Package monitor runs the periodic story check loop: capture,
// novelty decision, state persistence, and alert dispatch.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"storywatch/pkg/archive"
	"storywatch/pkg/capture"
	"storywatch/pkg/fingerprint"
	"storywatch/pkg/instagram"
	"storywatch/pkg/logger"
	"storywatch/pkg/novelty"
	"storywatch/pkg/retry"
	"storywatch/pkg/store"
)

// Dispatcher accepts alert deliveries for asynchronous sending.
type Dispatcher interface {
	Submit(job Job) error
}

// Job mirrors the delivery pool's job shape so the monitor does not
// depend on the pool directly.
type Job struct {
	ChatID    string
	Account   string
	Caption   string
	Kind      capture.Kind
	Media     []byte
	RecordKey string
}

// Options configures a Monitor.
type Options struct {
	// CheckInterval is the pause between monitoring cycles.
	CheckInterval time.Duration
	// AccountDelay is the pause between accounts within one cycle.
	AccountDelay time.Duration
	// RecoveryDelay is the pause after a failed cycle.
	RecoveryDelay time.Duration
}

// DefaultOptions matches the intervals the monitor has always run at.
func DefaultOptions() Options {
	return Options{
		CheckInterval: 5 * time.Minute,
		AccountDelay:  2 * time.Second,
		RecoveryDelay: 60 * time.Second,
	}
}

// Monitor drives the check loop over all tracked accounts.
type Monitor struct {
	capturer      capture.Capturer
	subscriptions *store.Subscriptions
	states        *store.AlertStates
	archive       *archive.Archive
	dispatcher    Dispatcher
	logger        logger.Logger
	opts          Options
	now           func() time.Time
}

// New wires a monitor. archive may be nil to disable archiving.
func New(
	capturer capture.Capturer,
	subscriptions *store.Subscriptions,
	states *store.AlertStates,
	arch *archive.Archive,
	dispatcher Dispatcher,
	opts Options,
	log logger.Logger,
) *Monitor {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultOptions().CheckInterval
	}
	if opts.AccountDelay < 0 {
		opts.AccountDelay = 0
	}
	if opts.RecoveryDelay <= 0 {
		opts.RecoveryDelay = DefaultOptions().RecoveryDelay
	}

	return &Monitor{
		capturer:      capturer,
		subscriptions: subscriptions,
		states:        states,
		archive:       arch,
		dispatcher:    dispatcher,
		logger:        log,
		opts:          opts,
		now:           time.Now,
	}
}

// Run executes check cycles until ctx is cancelled. The first cycle
// starts immediately.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.InfoWithFields("monitor started", map[string]interface{}{
		"check_interval": m.opts.CheckInterval.String(),
		"account_delay":  m.opts.AccountDelay.String(),
	})

	for {
		delay := m.opts.CheckInterval
		if err := m.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				m.logger.Info("monitor stopped")
				return ctx.Err()
			}
			m.logger.WithError(err).Error("monitoring cycle failed")
			delay = m.opts.RecoveryDelay
		}

		if err := retry.Wait(ctx, delay); err != nil {
			m.logger.Info("monitor stopped")
			return err
		}
	}
}

// RunCycle checks every tracked account once. Per-account failures are
// isolated; only subscription-level failures abort the cycle.
func (m *Monitor) RunCycle(ctx context.Context) error {
	subs, err := m.subscriptions.Load()
	if err != nil {
		return fmt.Errorf("failed to load subscriptions: %w", err)
	}
	if len(subs) == 0 {
		m.logger.Debug("no tracked accounts, skipping cycle")
		return nil
	}

	accounts := accountIndex(subs)
	names := make([]string, 0, len(accounts))
	for account := range accounts {
		names = append(names, account)
	}
	sort.Strings(names)

	m.logger.InfoWithFields("starting check cycle", map[string]interface{}{
		"accounts": len(names),
	})

	for i, account := range names {
		if i > 0 {
			if err := retry.Wait(ctx, m.opts.AccountDelay); err != nil {
				return err
			}
		}

		if err := m.CheckAccount(ctx, account, accounts[account]); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.ErrorWithFields("account check failed", map[string]interface{}{
				"account": account,
				"error":   err.Error(),
			})
		}
	}
	return nil
}

// CheckAccount runs one monitoring unit: capture the account's story,
// decide novelty against stored history, persist, and dispatch alerts
// to its subscribers.
func (m *Monitor) CheckAccount(ctx context.Context, account string, subscribers []string) error {
	item, err := m.capturer.Capture(ctx, account)
	if capture.IsNoStory(err) {
		m.logger.DebugWithFields("no active story", map[string]interface{}{
			"account": account,
		})
		m.touchState(account)
		return nil
	}
	if err != nil {
		return err
	}

	fp := fingerprint.New(item.SnapshotBytes, item.MediaBytes)

	state, stateErr := m.states.Get(account)
	if stateErr != nil {
		// Fail open: a lost history must not silence alerts
		m.logger.WarnWithFields("alert state unreadable, treating story as new", map[string]interface{}{
			"account": account,
			"error":   stateErr.Error(),
		})
	}

	decision := novelty.Decide(fp, state.History)
	now := m.now().UTC()
	state.LastCheck = now.Format(time.RFC3339)

	if decision == novelty.Seen {
		m.logger.DebugWithFields("story already seen", map[string]interface{}{
			"account": account,
		})
		if err := m.states.Put(account, state); err != nil {
			m.logger.WithError(err).Warn("failed to persist alert state")
		}
		return nil
	}

	m.logger.InfoWithFields("new story detected", map[string]interface{}{
		"account":   account,
		"kind":      string(item.Kind),
		"has_media": len(item.MediaBytes) > 0,
	})

	recordKeys := make(map[string]string, len(subscribers))
	for _, subscriber := range subscribers {
		key := fingerprint.RecordKey(subscriber, account, fp, now)
		state.History[key] = fp.Encode()
		recordKeys[subscriber] = key
	}

	// Persist before dispatch so a notify failure cannot re-trigger
	// the same story; a persist failure still alerts (fail open).
	if err := m.states.Put(account, state); err != nil {
		m.logger.WithError(err).Error("failed to persist alert state, alerting anyway")
	}

	if m.archive != nil {
		if err := m.archive.Save(item, fingerprint.ContentKey(account, fp, now)); err != nil {
			m.logger.WithError(err).Warn("failed to archive story")
		}
	}

	caption := alertCaption(account, item.Kind)
	for _, subscriber := range subscribers {
		job := Job{
			ChatID:    subscriber,
			Account:   account,
			Caption:   caption,
			Kind:      item.Kind,
			Media:     item.MediaBytes,
			RecordKey: recordKeys[subscriber],
		}
		if err := m.dispatcher.Submit(job); err != nil {
			m.logger.ErrorWithFields("failed to queue alert", map[string]interface{}{
				"account":    account,
				"subscriber": subscriber,
				"error":      err.Error(),
			})
		}
	}
	return nil
}

// touchState refreshes the last-check timestamp without altering
// history.
func (m *Monitor) touchState(account string) {
	state, err := m.states.Get(account)
	if err != nil {
		return
	}
	state.LastCheck = m.now().UTC().Format(time.RFC3339)
	if err := m.states.Put(account, state); err != nil {
		m.logger.WithError(err).Warn("failed to persist alert state")
	}
}

// accountIndex inverts the subscriber mapping into account to
// subscribers, with each subscriber list sorted.
func accountIndex(subs map[string][]string) map[string][]string {
	accounts := make(map[string][]string)
	for subscriber, names := range subs {
		for _, account := range names {
			accounts[account] = append(accounts[account], subscriber)
		}
	}
	for account := range accounts {
		sort.Strings(accounts[account])
	}
	return accounts
}

func alertCaption(account string, kind capture.Kind) string {
	icon := "🖼️"
	if kind == capture.KindVideo {
		icon = "🎥"
	}
	return fmt.Sprintf("%s New story from @%s\n%s", icon, account, instagram.StoryURL(account))
}
