package calendar

import (
	"context"
	"errors"
	log "log/slog"
	"time"

	"voxcal/pkg/util"
)

// Backend is the raw remote calendar. It gives no read-after-write guarantee.
type Backend interface {
	List(ctx context.Context) ([]Appointment, error)
	Create(ctx context.Context, a Appointment) error
	Delete(ctx context.Context, id ID) error
}

// Observer receives store call outcomes. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveStoreCall(op, outcome string)
	ObserveStoreRetry(op string)
}

// Timing holds the retry and settle delays used to cope with the backend's
// eventual consistency.
type Timing struct {
	ListAttempts  int
	RetryDelay    time.Duration
	CreateSettle  time.Duration
	DeleteSettle  time.Duration
	ModifySettle  time.Duration
	PassSettle    time.Duration
	VerifySettle  time.Duration
	MaxPasses     int
	RestoreOnFail bool
}

func DefaultTiming() Timing {
	return Timing{
		ListAttempts: 2,
		RetryDelay:   500 * time.Millisecond,
		CreateSettle: time.Second,
		DeleteSettle: time.Second,
		ModifySettle: 1500 * time.Millisecond,
		PassSettle:   2 * time.Second,
		VerifySettle: time.Second,
		MaxPasses:    10,
	}
}

// Changes are the overrides applied by Modify. Empty fields keep the old value.
type Changes struct {
	Title    string
	Location string
	Start    string
	End      string
}

func (c Changes) IsZero() bool {
	return c == Changes{}
}

// Client layers retries, settle delays and title resolution over a Backend.
// Its methods never return errors: failures are logged and reported as
// empty or false results.
type Client struct {
	backend  Backend
	timing   Timing
	observer Observer
	sleep    func(ctx context.Context, d time.Duration)
}

type Option func(*Client)

func WithTiming(t Timing) Option {
	return func(c *Client) {
		c.timing = t
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

func WithSleeper(fn func(ctx context.Context, d time.Duration)) Option {
	return func(c *Client) {
		c.sleep = fn
	}
}

func NewClient(backend Backend, opts ...Option) (*Client, error) {
	if backend == nil {
		return nil, errors.New("calendar: backend must not be nil")
	}
	c := &Client{
		backend: backend,
		timing:  DefaultTiming(),
		sleep:   util.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timing.ListAttempts <= 0 {
		c.timing.ListAttempts = 1
	}
	if c.timing.MaxPasses <= 0 {
		c.timing.MaxPasses = 1
	}
	if c.sleep == nil {
		c.sleep = util.Sleep
	}
	return c, nil
}

// List fetches the current appointments. After the last failed attempt it
// returns an empty slice.
func (c *Client) List(ctx context.Context) []Appointment {
	for attempt := 1; attempt <= c.timing.ListAttempts; attempt++ {
		list, err := c.backend.List(ctx)
		if err == nil {
			c.observe("list", "ok")
			if list == nil {
				list = []Appointment{}
			}
			return list
		}
		if attempt < c.timing.ListAttempts {
			log.Debug("Retrying appointment list", "attempt", attempt, "err", err)
			c.retried("list")
			c.sleep(ctx, c.timing.RetryDelay)
			continue
		}
		log.Error("Failed to fetch appointments", "err", err)
	}
	c.observe("list", "error")
	return []Appointment{}
}

// Create writes an appointment and reports whether its title shows up in a
// fresh listing after the create settle delay. The write's own result does
// not decide success.
func (c *Client) Create(ctx context.Context, title, description, start, end, location string) bool {
	err := c.backend.Create(ctx, Appointment{
		Title:       title,
		Description: description,
		StartTime:   start,
		EndTime:     end,
		Location:    location,
	})
	if err != nil {
		log.Warn("Appointment write reported failure", "title", title, "err", err)
	}

	c.sleep(ctx, c.timing.CreateSettle)

	if containsTitle(c.List(ctx), title) {
		c.observe("create", "ok")
		return true
	}
	log.Warn("Created appointment not visible", "title", title)
	c.observe("create", "unverified")
	return false
}

// DeleteByTitle resolves title to an id and deletes it.
func (c *Client) DeleteByTitle(ctx context.Context, title string) bool {
	target, ok := FindByTitle(c.List(ctx), title)
	if !ok || target.ID == "" {
		log.Info("Could not find appointment", "title", title)
		c.observe("delete", "not_found")
		return false
	}
	if !c.deleteID(ctx, target.ID, target.Title) {
		return false
	}
	c.sleep(ctx, c.timing.DeleteSettle)
	return true
}

// DeleteByID deletes one appointment without a title lookup.
func (c *Client) DeleteByID(ctx context.Context, id ID) bool {
	if id == "" {
		return false
	}
	return c.deleteID(ctx, id, "")
}

// DeleteAll deletes in passes until a pass finds nothing or deletes nothing,
// since a single pass may miss items the backend had not surfaced yet.
func (c *Client) DeleteAll(ctx context.Context) int {
	total := 0
	for pass := 1; pass <= c.timing.MaxPasses; pass++ {
		list := c.List(ctx)
		if len(list) == 0 {
			log.Debug("No more appointments", "pass", pass)
			break
		}

		log.Info("Deleting appointments", "pass", pass, "found", len(list))
		deleted := 0
		for _, a := range list {
			if a.ID == "" {
				continue
			}
			if c.deleteID(ctx, a.ID, a.Title) {
				deleted++
			}
		}
		total += deleted

		if deleted == 0 {
			log.Warn("Pass deleted nothing, stopping", "pass", pass)
			break
		}
		c.sleep(ctx, c.timing.PassSettle)
	}

	if total > 0 {
		c.sleep(ctx, c.timing.VerifySettle)
		log.Info("Bulk delete finished", "deleted", total, "remaining", len(c.List(ctx)))
	}
	return total
}

// Modify replaces the appointment matching oldTitle with a copy carrying the
// given changes. The replacement is a delete followed by a create: if the
// create fails the old appointment stays deleted unless RestoreOnFail is set.
func (c *Client) Modify(ctx context.Context, oldTitle string, ch Changes) bool {
	target, ok := FindByTitle(c.List(ctx), oldTitle)
	if !ok {
		log.Info("Could not find appointment", "title", oldTitle)
		c.observe("modify", "not_found")
		return false
	}
	if target.ID == "" {
		log.Warn("Appointment has no id", "title", target.Title)
		c.observe("modify", "no_id")
		return false
	}

	next := merge(target, ch)
	if next == target {
		c.observe("modify", "noop")
		return true
	}

	if !c.deleteID(ctx, target.ID, target.Title) {
		c.observe("modify", "delete_failed")
		return false
	}

	c.sleep(ctx, c.timing.ModifySettle)

	if c.Create(ctx, next.Title, next.Description, next.StartTime, next.EndTime, next.Location) {
		c.observe("modify", "ok")
		return true
	}

	log.Error("Appointment lost during modify: create after delete failed", "title", target.Title)
	c.observe("modify", "lost")
	if c.timing.RestoreOnFail {
		restored := c.Create(ctx, target.Title, target.Description, target.StartTime, target.EndTime, target.Location)
		log.Warn("Restore after failed modify", "title", target.Title, "restored", restored)
	}
	return false
}

func (c *Client) deleteID(ctx context.Context, id ID, title string) bool {
	if err := c.backend.Delete(ctx, id); err != nil {
		log.Error("Failed to delete appointment", "id", id, "title", title, "err", err)
		c.observe("delete", "error")
		return false
	}
	log.Debug("Deleted appointment", "id", id, "title", title)
	c.observe("delete", "ok")
	return true
}

func merge(old Appointment, ch Changes) Appointment {
	next := old
	if ch.Title != "" {
		next.Title = ch.Title
	}
	if ch.Location != "" {
		next.Location = ch.Location
	}
	if ch.Start != "" {
		next.StartTime = ch.Start
	}
	if ch.End != "" {
		next.EndTime = ch.End
	}
	return next
}

func (c *Client) observe(op, outcome string) {
	if c.observer != nil {
		c.observer.ObserveStoreCall(op, outcome)
	}
}

func (c *Client) retried(op string) {
	if c.observer != nil {
		c.observer.ObserveStoreRetry(op)
	}
}
