package cloudevents

import (
	"context"
	"time"
)

// CloudEvents extension attribute names carried as Kafka headers
const (
	ExtCorrelationID = "metscorrelationid"
	ExtWorkflowID    = "metsworkflowid"
	ExtOrderID       = "metsorderid"
	ExtPlanID        = "metsplanid"
	ExtTraceParent   = "traceparent"
	ExtTraceState    = "tracestate"
)

// HeaderPrefix is prepended to attribute names in binary content mode
const HeaderPrefix = "ce-"

// HTTP header carrying the correlation id between services
const HeaderCorrelationID = "X-Correlation-ID"

type correlationKey struct{}

// ContextWithCorrelationID stores a correlation id that CreateEvent copies
// onto every event built with the returned context.
func ContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationKey{}, correlationID)
}

// CorrelationIDFromContext returns the correlation id stored in ctx, if any
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(correlationKey{}).(string); ok {
		return v
	}
	return ""
}

// Headers returns the binary-mode attributes of the event, keyed by the
// ce- prefixed header name. Empty extensions are omitted.
func (e *METSCloudEvent) Headers() map[string]string {
	headers := map[string]string{
		HeaderPrefix + "specversion": e.SpecVersion,
		HeaderPrefix + "type":        e.Type,
		HeaderPrefix + "source":      e.Source,
		HeaderPrefix + "id":          e.ID,
		HeaderPrefix + "time":        e.Time.Format(time.RFC3339),
		"content-type":               e.DataContentType,
	}
	for name, value := range e.extensions() {
		if value != "" {
			headers[HeaderPrefix+name] = value
		}
	}
	return headers
}

// SetExtension sets a known extension attribute by name. Unknown names are
// ignored and reported as false.
func (e *METSCloudEvent) SetExtension(name, value string) bool {
	switch name {
	case ExtCorrelationID:
		e.CorrelationID = value
	case ExtWorkflowID:
		e.WorkflowID = value
	case ExtOrderID:
		e.OrderID = value
	case ExtPlanID:
		e.PlanID = value
	case ExtTraceParent:
		e.TraceParent = value
	case ExtTraceState:
		e.TraceState = value
	default:
		return false
	}
	return true
}

func (e *METSCloudEvent) extensions() map[string]string {
	return map[string]string{
		ExtCorrelationID: e.CorrelationID,
		ExtWorkflowID:    e.WorkflowID,
		ExtOrderID:       e.OrderID,
		ExtPlanID:        e.PlanID,
		ExtTraceParent:   e.TraceParent,
		ExtTraceState:    e.TraceState,
	}
}
