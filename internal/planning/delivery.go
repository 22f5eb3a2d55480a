package planning

import "time"

// EstimateDeliveries maps every order id to the end of its task. Order ids
// are expected to be unique; a repeated id keeps the end of its last task.
func EstimateDeliveries(tasks []ScheduledTask) map[string]time.Time {
	out := make(map[string]time.Time, len(tasks))
	for _, task := range tasks {
		out[task.OrderID] = task.End
	}
	return out
}
