package planning

import "time"

// Engine composes the estimator, classifier, scheduler, capacity aggregator
// and delivery estimator over one validated configuration. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	params     Parameters
	units      []ProductionUnit
	estimator  *DurationEstimator
	classifier *ResourceClassifier
	scheduler  *Scheduler
	aggregator *CapacityAggregator
}

// NewEngine validates the configuration and builds an Engine.
func NewEngine(params Parameters, units []ProductionUnit) (*Engine, error) {
	if err := params.Validate(units); err != nil {
		return nil, err
	}

	estimator := NewDurationEstimator(params.DurationTable, params.DefaultDurationHours)
	classifier := NewResourceClassifier(params.ResourceRules, params.DefaultResourceID)
	scheduler := NewScheduler(estimator, classifier, SchedulerConfig{
		WorkdayStartHour: params.WorkdayStartHour,
		WeekendPolicy:    params.WeekendPolicy,
		Mode:             params.Mode,
	})
	aggregator, err := NewCapacityAggregator(units, params.DefaultResourceID, params.CapacityWindowDays)
	if err != nil {
		return nil, err
	}

	return &Engine{
		params:     params,
		units:      append([]ProductionUnit(nil), units...),
		estimator:  estimator,
		classifier: classifier,
		scheduler:  scheduler,
		aggregator: aggregator,
	}, nil
}

// Plan schedules the orders from startOfDay and derives the capacity load
// over the window starting at now and the delivery estimates.
func (e *Engine) Plan(orders []Order, startOfDay, now time.Time) *Plan {
	schedule := e.scheduler.Schedule(orders, startOfDay)

	return &Plan{
		Schedule:          schedule,
		CapacityLoad:      e.aggregator.Aggregate(schedule, now),
		DeliveryEstimates: EstimateDeliveries(schedule),
		StartOfDay:        e.scheduler.WorkdayStart(startOfDay),
		GeneratedAt:       now,
		Mode:              e.params.Mode,
		WeekendPolicy:     e.params.WeekendPolicy,
	}
}

// Estimator returns the duration estimator
func (e *Engine) Estimator() *DurationEstimator { return e.estimator }

// Classifier returns the resource classifier
func (e *Engine) Classifier() *ResourceClassifier { return e.classifier }

// Parameters returns the parameters the engine was built with
func (e *Engine) Parameters() Parameters { return e.params }

// Units returns the configured production units
func (e *Engine) Units() []ProductionUnit {
	return append([]ProductionUnit(nil), e.units...)
}
