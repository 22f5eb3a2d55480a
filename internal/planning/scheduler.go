package planning

import (
	"fmt"
	"math"
	"time"
)

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	WorkdayStartHour int
	WeekendPolicy    WeekendPolicy
	Mode             Mode
}

// Scheduler lays orders out on a simulated timeline in input order.
type Scheduler struct {
	estimator  *DurationEstimator
	classifier *ResourceClassifier
	config     SchedulerConfig
}

// NewScheduler creates a Scheduler
func NewScheduler(estimator *DurationEstimator, classifier *ResourceClassifier, config SchedulerConfig) *Scheduler {
	if !config.WeekendPolicy.IsValid() {
		config.WeekendPolicy = WeekendDiscard
	}
	if !config.Mode.IsValid() {
		config.Mode = ModeSingleTrack
	}
	return &Scheduler{
		estimator:  estimator,
		classifier: classifier,
		config:     config,
	}
}

// timeline is the fold state. step returns a new value; the tasks slice is
// append-only and an earlier timeline is never extended again.
type timeline struct {
	clocks map[string]time.Time
	tasks  []ScheduledTask
}

func (t timeline) clock(track string, origin time.Time) time.Time {
	if at, ok := t.clocks[track]; ok {
		return at
	}
	return origin
}

func (t timeline) advance(track string, at time.Time, task ScheduledTask) timeline {
	clocks := make(map[string]time.Time, len(t.clocks)+1)
	for k, v := range t.clocks {
		clocks[k] = v
	}
	clocks[track] = at

	return timeline{clocks: clocks, tasks: append(t.tasks, task)}
}

// Schedule assigns one task per order. The clock starts at startOfDay's date
// at the workday start hour in startOfDay's location. In single track mode
// every task starts where the previous one ended; in multi track mode that
// holds per production unit.
func (s *Scheduler) Schedule(orders []Order, startOfDay time.Time) []ScheduledTask {
	origin := s.WorkdayStart(startOfDay)

	result := fold(orders, timeline{}, func(tl timeline, order Order) timeline {
		return s.step(tl, order, origin)
	})

	if result.tasks == nil {
		return []ScheduledTask{}
	}
	return result.tasks
}

func (s *Scheduler) step(tl timeline, order Order, origin time.Time) timeline {
	resourceID := s.classifier.Classify(order)
	track := ""
	if s.config.Mode == ModeMultiTrack {
		track = resourceID
	}

	start := tl.clock(track, origin)
	hours := s.estimator.Estimate(order)
	end := s.AdjustForWeekend(start.Add(hoursToDuration(hours)))

	task := ScheduledTask{
		ID:            TaskID(order.ID),
		OrderID:       order.ID,
		Name:          taskName(order),
		ResourceID:    resourceID,
		Start:         start,
		End:           end,
		DurationHours: hours,
	}

	return tl.advance(track, end, task)
}

// WorkdayStart returns the start of business on the given day.
func (s *Scheduler) WorkdayStart(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, s.config.WorkdayStartHour, 0, 0, 0, day.Location())
}

// AdjustForWeekend moves an end time that falls on Saturday or Sunday to the
// following Monday at the workday start hour. Under the carry forward policy
// the hours spent in the weekend are added back on Monday.
func (s *Scheduler) AdjustForWeekend(end time.Time) time.Time {
	var daysToMonday int
	switch end.Weekday() {
	case time.Saturday:
		daysToMonday = 2
	case time.Sunday:
		daysToMonday = 1
	default:
		return end
	}

	y, m, d := end.Date()
	monday := time.Date(y, m, d+daysToMonday, s.config.WorkdayStartHour, 0, 0, 0, end.Location())

	if s.config.WeekendPolicy == WeekendCarryForward {
		saturday := time.Date(y, m, d+daysToMonday-2, 0, 0, 0, 0, end.Location())
		return monday.Add(end.Sub(saturday))
	}
	return monday
}

// TaskID derives the task id from the order id.
func TaskID(orderID string) string {
	return "task-" + orderID
}

func taskName(order Order) string {
	cellType := order.CellType
	if cellType == "" {
		cellType = "N/A"
	}
	return fmt.Sprintf("Sipariş: %s (%s)", order.ID, cellType)
}

func hoursToDuration(hours float64) time.Duration {
	if math.IsNaN(hours) || hours < MinimumDurationHours {
		hours = MinimumDurationHours
	}
	if hours > MaxDurationHours {
		hours = MaxDurationHours
	}
	return time.Duration(hours * float64(time.Hour))
}

func fold[T, A any](items []T, acc A, fn func(A, T) A) A {
	for _, item := range items {
		acc = fn(acc, item)
	}
	return acc
}
