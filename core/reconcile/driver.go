package reconcile

import (
	"context"
	"fmt"
	"time"

	"calendar-sync/core/event"
	"calendar-sync/core/utils"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Driver reconciles event sets against a destination calendar.
// It is not safe for concurrent runs against the same destination.
type Driver struct {
	opts   Options
	clock  utils.Clock
	logger *zap.Logger
}

// NewDriver creates a driver. A nil clock means the system clock.
func NewDriver(opts Options, clock utils.Clock, logger *zap.Logger) *Driver {
	if opts.MaxCreateAge <= 0 {
		opts.MaxCreateAge = DefaultMaxCreateAge
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{opts: opts, clock: clock, logger: logger}
}

// ReconcileRecords brings the destination in line with the record events.
// Each record id is an independent unit; a failing unit does not stop the run.
// The returned error combines every unit failure.
func (d *Driver) ReconcileRecords(ctx context.Context, dst Destination[*event.SourceEvent], source, existing []*event.SourceEvent) (*Report, error) {
	report := &Report{DryRun: d.opts.DryRun}
	pairs := Match(source, existing, RecordKey)
	report.Summary.Units = len(pairs)

	var errs error
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return report, multierr.Append(errs, err)
		}
		if err := d.reconcileRecord(ctx, report, dst, p); err != nil {
			d.logger.Error("Failed to reconcile record", zap.String("key", p.Key), zap.Error(err))
			report.fail(p.Key, err)
			errs = multierr.Append(errs, fmt.Errorf("record %s: %w", p.Key, err))
		}
	}

	d.logSummary("records", report)
	return report, errs
}

// ReconcileSeries brings the destination in line with the feed events.
// Each series UID is an independent unit; a failing unit does not stop the run.
// The returned error combines every unit failure.
func (d *Driver) ReconcileSeries(ctx context.Context, dst SeriesDestination, feed, existing []*event.FeedEvent) (*Report, error) {
	report := &Report{DryRun: d.opts.DryRun}
	pairs := Match(feed, existing, SeriesKey)
	report.Summary.Units = len(pairs)

	var errs error
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return report, multierr.Append(errs, err)
		}
		if err := d.reconcileSeries(ctx, report, dst, p); err != nil {
			d.logger.Error("Failed to reconcile series", zap.String("key", p.Key), zap.Error(err))
			report.fail(p.Key, err)
			errs = multierr.Append(errs, fmt.Errorf("series %s: %w", p.Key, err))
		}
	}

	d.logSummary("series", report)
	return report, errs
}

func (d *Driver) reconcileRecord(ctx context.Context, report *Report, dst Destination[*event.SourceEvent], p Pair[*event.SourceEvent]) error {
	src, hasSrc, err := single(p.Key, p.Source)
	if err != nil {
		return err
	}
	cur, hasCur, err := single(p.Key, p.Destination)
	if err != nil {
		return err
	}

	var srcBase, curBase *event.Event
	if hasSrc {
		srcBase = &src.Event
	}
	if hasCur {
		curBase = &cur.Event
	}

	equivalent := hasSrc && hasCur && RecordsEquivalent(src, cur)
	act := d.decide(srcBase, curBase, equivalent, false)
	return apply(ctx, d, report, dst, p.Key, act, src, cur)
}

func (d *Driver) reconcileSeries(ctx context.Context, report *Report, dst SeriesDestination, p Pair[*event.FeedEvent]) error {
	srcRoot, err := Root(p.Source)
	if err != nil {
		return err
	}
	curRoot, err := Root(p.Destination)
	if err != nil {
		return err
	}
	srcExceptions := Exceptions(p.Source, srcRoot)
	curExceptions := Exceptions(p.Destination, curRoot)

	// Root first: exceptions need the destination root.
	equivalent := srcRoot != nil && curRoot != nil && FeedEquivalent(srcRoot, curRoot)
	waiveStale := srcRoot != nil && srcRoot.IsRecurring()
	act := d.decide(feedBase(srcRoot), feedBase(curRoot), equivalent, waiveStale)
	if err := apply(ctx, d, report, dst, p.Key, act, srcRoot, curRoot); err != nil {
		return err
	}

	switch act {
	case ActionDelete, ActionSkipStale:
		// A deleted root takes its instances with it; resetting them would resurrect them.
		return nil
	case ActionCreate:
		curRoot = srcRoot
	}

	pairs := MatchExceptions(srcExceptions, curExceptions)

	// An override whose content changed upstream shows up twice: as a new
	// source exception and as a stale destination one. The override rewrites
	// that instance, so it must not be reset as well.
	overridden := make(map[int64]bool)
	for _, ep := range pairs {
		if ep.Source != nil && ep.Destination == nil {
			overridden[ep.Source.RecurrenceStart.UnixNano()] = true
		}
	}

	instances := &instanceSet{root: curRoot}
	for _, ep := range pairs {
		switch {
		case ep.Source != nil && ep.Destination != nil:
			ep.Source.DestinationSeriesID = ep.Destination.DestinationSeriesID
			excAct := d.decide(&ep.Source.Event, &ep.Destination.Event, FeedEquivalent(ep.Source, ep.Destination), false)
			err = apply(ctx, d, report, dst, p.Key, excAct, ep.Source, ep.Destination)
		case ep.Source != nil:
			err = d.overrideInstance(ctx, report, dst, p.Key, instances, ep.Source)
		case overridden[ep.Destination.RecurrenceStart.UnixNano()]:
			continue
		default:
			err = d.resetInstance(ctx, report, dst, p.Key, curRoot, ep.Destination)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// decide applies the four-way rule to one source/destination couple.
func (d *Driver) decide(src, cur *event.Event, equivalent, waiveStale bool) ActionType {
	switch {
	case src != nil && cur != nil:
		if equivalent {
			return ActionNone
		}
		return ActionUpdate
	case src != nil:
		if !waiveStale && d.isStale(src) {
			return ActionSkipStale
		}
		return ActionCreate
	case cur != nil:
		return ActionDelete
	default:
		return ActionNone
	}
}

func (d *Driver) isStale(e *event.Event) bool {
	return e.Age(d.clock.Now()) > d.opts.MaxCreateAge
}

// apply performs one decision. src and cur are only dereferenced when the
// decision implies they are present.
func apply[T event.Reconcilable](ctx context.Context, d *Driver, report *Report, dst Destination[T], key string, act ActionType, src, cur T) error {
	a := Action{Type: act, Key: key}

	switch act {
	case ActionNone:
		a.Title = src.Base().Title
		report.record(a)
		return nil

	case ActionSkipStale:
		s := src.Base()
		a.Title = s.Title
		a.Reason = fmt.Sprintf("started %s ago", s.Age(d.clock.Now()).Truncate(time.Hour))
		d.logger.Debug("Skipping stale event", zap.String("key", key), zap.String("title", s.Title))

	case ActionCreate:
		s := src.Base()
		a.Title = s.Title
		a.Reason = "missing in destination"
		if !d.opts.DryRun {
			id, err := dst.Create(ctx, src)
			if err != nil {
				return err
			}
			s.DestinationID = id
			a.Executed = true
		}
		a.DestinationID = s.DestinationID
		d.logger.Info("Created event", zap.String("key", key), zap.String("title", s.Title), zap.Bool("dry_run", d.opts.DryRun))

	case ActionUpdate:
		s, c := src.Base(), cur.Base()
		s.DestinationID = c.DestinationID
		a.Title = s.Title
		a.Reason = "fields differ"
		a.DestinationID = c.DestinationID
		if !d.opts.DryRun {
			if err := dst.Update(ctx, src); err != nil {
				return err
			}
			a.Executed = true
		}
		d.logger.Info("Updated event", zap.String("key", key), zap.String("title", s.Title), zap.Bool("dry_run", d.opts.DryRun))

	case ActionDelete:
		c := cur.Base()
		a.Title = c.Title
		a.Reason = "missing in source"
		a.DestinationID = c.DestinationID
		if !d.opts.DryRun {
			if err := dst.Delete(ctx, cur); err != nil {
				return err
			}
			a.Executed = true
		}
		d.logger.Info("Deleted event", zap.String("key", key), zap.String("title", c.Title), zap.Bool("dry_run", d.opts.DryRun))
	}

	report.record(a)
	return nil
}

// overrideInstance writes a source-only exception onto the matching instance
// of the destination root.
func (d *Driver) overrideInstance(ctx context.Context, report *Report, dst SeriesDestination, key string, instances *instanceSet, exc *event.FeedEvent) error {
	a := Action{Type: ActionUpdate, Key: key, Title: exc.Title, Reason: "occurrence override"}

	if d.isStale(&exc.Event) {
		report.record(Action{Type: ActionSkipStale, Key: key, Title: exc.Title, Reason: "stale occurrence override"})
		return nil
	}

	if !instances.root.Created() {
		// Only reachable in dry-run: the root was "created" without an id.
		a.Reason = "occurrence override, pending root creation"
		report.record(a)
		return nil
	}

	inst, err := instances.find(ctx, dst, key, *exc.RecurrenceStart)
	if err != nil {
		return err
	}

	exc.DestinationID = inst.DestinationID
	exc.DestinationSeriesID = instances.root.DestinationID
	a.DestinationID = inst.DestinationID
	if !d.opts.DryRun {
		if err := dst.Update(ctx, exc); err != nil {
			return err
		}
		a.Executed = true
	}

	d.logger.Info("Updated occurrence", zap.String("key", key), zap.String("title", exc.Title), zap.Bool("dry_run", d.opts.DryRun))
	report.record(a)
	return nil
}

// resetInstance reverts a destination-only exception to the shape its root
// gives the occurrence.
func (d *Driver) resetInstance(ctx context.Context, report *Report, dst SeriesDestination, key string, root, exc *event.FeedEvent) error {
	if d.isStale(&exc.Event) {
		report.record(Action{Type: ActionSkipStale, Key: key, Title: exc.Title, Reason: "stale occurrence reset"})
		return nil
	}

	reset := resetToRoot(exc, root)
	a := Action{Type: ActionReset, Key: key, Title: reset.Title, Reason: "override removed in source", DestinationID: reset.DestinationID}
	if !d.opts.DryRun {
		if err := dst.Update(ctx, reset); err != nil {
			return err
		}
		a.Executed = true
	}

	d.logger.Info("Reset occurrence", zap.String("key", key), zap.String("title", reset.Title), zap.Bool("dry_run", d.opts.DryRun))
	report.record(a)
	return nil
}

func resetToRoot(exc, root *event.FeedEvent) *event.FeedEvent {
	reset := exc.Clone()
	start := *exc.RecurrenceStart
	reset.Date = event.Date{
		Start:  start,
		End:    start.Add(root.Date.Duration()),
		AllDay: root.Date.AllDay,
	}
	reset.Title = root.Title
	reset.Location = root.Location
	reset.Status = root.Status
	if reset.DestinationSeriesID == "" {
		reset.DestinationSeriesID = root.DestinationID
	}
	return reset
}

// instanceSet lazily lists the instances of a root, once per unit.
type instanceSet struct {
	root   *event.FeedEvent
	items  []*event.FeedEvent
	loaded bool
}

func (s *instanceSet) find(ctx context.Context, dst SeriesDestination, key string, occurrence time.Time) (*event.FeedEvent, error) {
	if !s.loaded {
		items, err := dst.ListInstances(ctx, s.root)
		if err != nil {
			return nil, err
		}
		s.items = items
		s.loaded = true
	}

	var found *event.FeedEvent
	hits := 0
	for _, inst := range s.items {
		if inst.RecurrenceStart != nil && inst.RecurrenceStart.Equal(occurrence) {
			found = inst
			hits++
		}
	}
	if hits != 1 {
		return nil, &MalformedGroupError{
			Key:    key,
			Reason: fmt.Sprintf("expected one instance starting %s, found %d", occurrence.Format(time.RFC3339), hits),
		}
	}
	return found, nil
}

func feedBase(e *event.FeedEvent) *event.Event {
	if e == nil {
		return nil
	}
	return &e.Event
}

func (d *Driver) logSummary(kind string, report *Report) {
	s := report.Summary
	d.logger.Info("Reconciliation finished",
		zap.String("kind", kind),
		zap.Int("units", s.Units),
		zap.Int("created", s.Created),
		zap.Int("updated", s.Updated),
		zap.Int("reset", s.Reset),
		zap.Int("deleted", s.Deleted),
		zap.Int("skipped", s.Skipped),
		zap.Int("unchanged", s.Unchanged),
		zap.Int("failed", s.Failed),
		zap.Bool("dry_run", report.DryRun),
	)
}
