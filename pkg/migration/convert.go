package migration

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/fabricops/fabricctl/pkg/models"
)

const (
	DefaultHorizon  = 365 * 24 * time.Hour
	DefaultTimeZone = "UTC"

	MinCronInterval = 1
	MaxCronInterval = 5270400
)

var (
	ErrNotScheduleTrigger = errors.New("not a schedule trigger")
	ErrUnsupported        = errors.New("unsupported recurrence")
)

// weekIndex of the Fabric ordinal weekday for an ADF occurrence
var weekIndexes = map[int]string{
	1:  "First",
	2:  "Second",
	3:  "Third",
	4:  "Fourth",
	-1: "Last",
}

type Options struct {
	// End of schedules whose trigger has no end time, counted from the start
	Horizon time.Duration
	// Start of schedules whose trigger has no start time
	Now func() time.Time
}

func (o Options) horizon() time.Duration {
	if o.Horizon <= 0 {
		return DefaultHorizon
	}
	return o.Horizon
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now().UTC()
	}
	return o.Now()
}

// Fabric schedules equivalent to one trigger
type Conversion struct {
	Enabled  bool
	Configs  []models.ScheduleConfig
	Warnings []string
}

func (c *Conversion) warn(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// Convert the recurrence of a ScheduleTrigger into Fabric schedule
// configurations. Month recurrences yield one configuration per day.
func Convert(t Trigger, opts Options) (*Conversion, error) {
	if t.Properties.Type != TriggerTypeSchedule {
		return nil, fmt.Errorf("%w: %s", ErrNotScheduleTrigger, t.Properties.Type)
	}
	r := t.Properties.TypeProperties.Recurrence
	if r == nil {
		return nil, fmt.Errorf("%w: trigger has no recurrence", ErrUnsupported)
	}

	conv := &Conversion{Enabled: !strings.EqualFold(t.Properties.RuntimeState, "Stopped")}

	zone := r.TimeZone
	if zone == "" {
		zone = DefaultTimeZone
	}

	start := opts.now()
	if r.StartTime != "" {
		var err error
		if start, err = parseTime(r.StartTime); err != nil {
			return nil, fmt.Errorf("startTime: %w", err)
		}
	} else if loc, err := time.LoadLocation(zone); err == nil {
		start = start.In(loc)
	} else {
		start = start.UTC()
		conv.warn("no start time and time zone %q is unknown, starting at %s UTC", zone, start.Format(models.ScheduleTimeLayout))
	}
	end := start.Add(opts.horizon())
	if r.EndTime != "" {
		var err error
		if end, err = parseTime(r.EndTime); err != nil {
			return nil, fmt.Errorf("endTime: %w", err)
		}
		if !end.After(start) {
			return nil, fmt.Errorf("%w: endTime %s is not after startTime", ErrUnsupported, r.EndTime)
		}
	} else {
		conv.warn("no end time, schedule ends %s", end.Format(models.ScheduleTimeLayout))
	}

	base := models.ScheduleConfig{
		StartDateTime:   start.Format(models.ScheduleTimeLayout),
		EndDateTime:     end.Format(models.ScheduleTimeLayout),
		LocalTimeZoneID: zone,
	}

	interval := r.Interval
	if interval == 0 {
		interval = 1
	}
	if interval < 0 {
		return nil, fmt.Errorf("%w: interval %d", ErrUnsupported, interval)
	}
	schedule := r.Schedule
	if schedule == nil {
		schedule = &RecurrenceSchedule{}
	}

	switch strings.ToLower(r.Frequency) {
	case "minute":
		if len(schedule.Hours) > 0 || len(schedule.Minutes) > 0 {
			conv.warn("schedule hours and minutes are ignored for minute recurrences")
		}
		cfg, err := cron(base, interval)
		if err != nil {
			return nil, err
		}
		conv.Configs = append(conv.Configs, cfg)

	case "hour":
		if len(schedule.Minutes) > 0 {
			conv.warn("schedule minutes are ignored, runs are anchored at the start time")
		}
		cfg, err := cron(base, interval*60)
		if err != nil {
			return nil, err
		}
		conv.Configs = append(conv.Configs, cfg)

	case "day":
		if interval > 1 {
			if len(schedule.Hours) > 0 || len(schedule.Minutes) > 0 {
				conv.warn("schedule times are ignored for every %d days", interval)
			}
			conv.warn("every %d days becomes a %d minute interval anchored at the start time", interval, interval*1440)
			cfg, err := cron(base, interval*1440)
			if err != nil {
				return nil, err
			}
			conv.Configs = append(conv.Configs, cfg)
			break
		}
		cfg := base
		cfg.Type = models.ScheduleDaily
		cfg.Times = times(schedule, start)
		conv.Configs = append(conv.Configs, cfg)

	case "week":
		if interval > 1 {
			return nil, fmt.Errorf("%w: every %d weeks", ErrUnsupported, interval)
		}
		cfg := base
		cfg.Type = models.ScheduleWeekly
		cfg.Times = times(schedule, start)
		cfg.Weekdays = weekdays(schedule.WeekDays, start)
		conv.Configs = append(conv.Configs, cfg)

	case "month":
		configs, err := monthly(conv, base, interval, schedule, start)
		if err != nil {
			return nil, err
		}
		conv.Configs = append(conv.Configs, configs...)

	default:
		return nil, fmt.Errorf("%w: frequency %q", ErrUnsupported, r.Frequency)
	}

	return conv, nil
}

func cron(base models.ScheduleConfig, minutes int) (models.ScheduleConfig, error) {
	if minutes < MinCronInterval || minutes > MaxCronInterval {
		return base, fmt.Errorf("%w: interval of %d minutes is outside %d..%d", ErrUnsupported, minutes, MinCronInterval, MaxCronInterval)
	}
	base.Type = models.ScheduleCron
	base.Interval = minutes
	return base, nil
}

func monthly(conv *Conversion, base models.ScheduleConfig, interval int, schedule *RecurrenceSchedule, start time.Time) ([]models.ScheduleConfig, error) {
	base.Type = models.ScheduleMonthly
	base.Recurrence = interval
	base.Times = times(schedule, start)

	var configs []models.ScheduleConfig
	for _, day := range schedule.MonthDays {
		if day < 1 || day > 31 {
			return nil, fmt.Errorf("%w: month day %d", ErrUnsupported, day)
		}
		cfg := base
		cfg.Occurrence = &models.MonthlyOccurrence{OccurrenceType: "DayOfMonth", DayOfMonth: day}
		configs = append(configs, cfg)
	}

	// occurrence 0 runs on every such weekday of the month
	var everyWeek []string
	for _, o := range schedule.MonthlyOccurrences {
		if o.Occurrence == 0 {
			everyWeek = append(everyWeek, o.Day)
			continue
		}
		index, ok := weekIndexes[o.Occurrence]
		if !ok {
			return nil, fmt.Errorf("%w: occurrence %d of %s", ErrUnsupported, o.Occurrence, o.Day)
		}
		cfg := base
		cfg.Occurrence = &models.MonthlyOccurrence{OccurrenceType: "OrdinalWeekday", WeekIndex: index, Weekday: o.Day}
		configs = append(configs, cfg)
	}
	if len(everyWeek) > 0 {
		if interval > 1 {
			return nil, fmt.Errorf("%w: every %s of every %d months", ErrUnsupported, strings.Join(everyWeek, ", "), interval)
		}
		cfg := base
		cfg.Type = models.ScheduleWeekly
		cfg.Recurrence = 0
		cfg.Weekdays = weekdays(everyWeek, start)
		slices.Sort(cfg.Weekdays)
		cfg.Weekdays = slices.Compact(cfg.Weekdays)
		configs = append(configs, cfg)
		conv.warn("every %s of the month becomes a weekly schedule", strings.Join(cfg.Weekdays, ", "))
	}

	if len(schedule.MonthDays) == 0 && len(schedule.MonthlyOccurrences) == 0 {
		cfg := base
		cfg.Occurrence = &models.MonthlyOccurrence{OccurrenceType: "DayOfMonth", DayOfMonth: start.Day()}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// Every combination of schedule hours and minutes as HH:mm. Missing
// hours or minutes default to those of the start time.
func times(schedule *RecurrenceSchedule, start time.Time) []string {
	hours := schedule.Hours
	if len(hours) == 0 {
		hours = []int{start.Hour()}
	}
	minutes := schedule.Minutes
	if len(minutes) == 0 {
		minutes = []int{start.Minute()}
	}

	out := []string{}
	for _, h := range hours {
		for _, m := range minutes {
			out = append(out, fmt.Sprintf("%02d:%02d", h, m))
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func weekdays(days []string, start time.Time) []string {
	if len(days) == 0 {
		return []string{start.Weekday().String()}
	}
	return slices.Clone(days)
}

// ADF times are either RFC 3339 or local to the trigger's time zone
func parseTime(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, models.ScheduleTimeLayout, "2006-01-02T15:04:05.9999999", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", value)
}
