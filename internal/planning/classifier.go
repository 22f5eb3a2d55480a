package planning

import "strings"

// ResourceClassifier maps an order to the production unit it consumes.
type ResourceClassifier struct {
	rules           []ResourceRule
	defaultResource string
}

// NewResourceClassifier creates a classifier. Rules are tried in order.
func NewResourceClassifier(rules []ResourceRule, defaultResource string) *ResourceClassifier {
	return &ResourceClassifier{
		rules:           append([]ResourceRule(nil), rules...),
		defaultResource: defaultResource,
	}
}

// Classify returns the unit of the first rule whose marker occurs in the
// cell type (case-sensitive), or the default unit.
func (c *ResourceClassifier) Classify(order Order) string {
	for _, rule := range c.rules {
		if strings.Contains(order.CellType, rule.Marker) {
			return rule.ResourceID
		}
	}
	return c.defaultResource
}

// DefaultResource returns the fallback unit id.
func (c *ResourceClassifier) DefaultResource() string {
	return c.defaultResource
}
