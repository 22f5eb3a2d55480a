package asyncapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mets-platform/mets/pkg/cloudevents"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// EventValidator validates CloudEvent payloads against the schemas of an
// AsyncAPI document.
type EventValidator struct {
	schemas  map[string]*jsonschema.Schema
	compiler *jsonschema.Compiler
}

// Spec is the part of an AsyncAPI document the validator reads.
type Spec struct {
	AsyncAPI   string             `yaml:"asyncapi"`
	Info       Info               `yaml:"info"`
	Channels   map[string]Channel `yaml:"channels"`
	Components Components         `yaml:"components"`
}

// Info contains the AsyncAPI info section.
type Info struct {
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
}

// Channel represents a channel in AsyncAPI.
type Channel struct {
	Address  string         `yaml:"address"`
	Messages map[string]any `yaml:"messages"`
}

// Components contains reusable components.
type Components struct {
	Schemas  map[string]any `yaml:"schemas"`
	Messages map[string]any `yaml:"messages"`
}

// schemaEventTypes binds payload schema names to the event types they
// describe.
var schemaEventTypes = map[string]string{
	"OrderCreatedData":       cloudevents.OrderCreated,
	"OrderStatusChangedData": cloudevents.OrderStatusChanged,
	"OrderCanceledData":      cloudevents.OrderCanceled,
	"PlanGeneratedData":      cloudevents.PlanGenerated,
	"CapacityOverloadedData": cloudevents.CapacityOverloaded,
}

// NewEventValidatorFromFile creates a validator from an AsyncAPI file.
func NewEventValidatorFromFile(path string) (*EventValidator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read AsyncAPI spec: %w", err)
	}
	return NewEventValidatorFromBytes(data)
}

// NewEventValidatorFromBytes creates a validator from AsyncAPI bytes. Every
// known payload schema must compile.
func NewEventValidatorFromBytes(specBytes []byte) (*EventValidator, error) {
	var spec Spec
	if err := yaml.Unmarshal(specBytes, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse AsyncAPI spec: %w", err)
	}

	v := &EventValidator{
		schemas:  make(map[string]*jsonschema.Schema),
		compiler: jsonschema.NewCompiler(),
	}

	for schemaName, raw := range spec.Components.Schemas {
		eventType, ok := schemaEventTypes[schemaName]
		if !ok {
			continue
		}

		schemaJSON, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to encode schema %s: %w", schemaName, err)
		}
		if err := v.register("asyncapi://schemas/"+schemaName, eventType, schemaJSON); err != nil {
			return nil, fmt.Errorf("schema %s: %w", schemaName, err)
		}
	}

	return v, nil
}

func (v *EventValidator) register(uri, eventType string, schemaJSON []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return fmt.Errorf("failed to parse schema JSON: %w", err)
	}
	if err := v.compiler.AddResource(uri, doc); err != nil {
		return fmt.Errorf("failed to add schema resource: %w", err)
	}

	compiled, err := v.compiler.Compile(uri)
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	v.schemas[eventType] = compiled
	return nil
}

// RegisterSchema adds or replaces the schema of an event type.
func (v *EventValidator) RegisterSchema(eventType string, schemaJSON []byte) error {
	return v.register("custom://schemas/"+eventType, eventType, schemaJSON)
}

// ValidateEvent validates the payload of event against the schema of its type.
func (v *EventValidator) ValidateEvent(event *cloudevents.METSCloudEvent) error {
	if event == nil || event.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if event.Data == nil {
		return fmt.Errorf("event data is required")
	}

	schema, ok := v.schemas[event.Type]
	if !ok {
		return fmt.Errorf("no schema found for event type: %s", event.Type)
	}

	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	data, err := jsonschema.UnmarshalJSON(bytes.NewReader(dataJSON))
	if err != nil {
		return fmt.Errorf("failed to decode event data: %w", err)
	}

	if err := schema.Validate(data); err != nil {
		return fmt.Errorf("event data validation failed for type %s: %w", event.Type, err)
	}
	return nil
}

// ValidateEventJSON validates a structured-mode CloudEvent.
func (v *EventValidator) ValidateEventJSON(eventJSON []byte) error {
	var event cloudevents.METSCloudEvent
	if err := json.Unmarshal(eventJSON, &event); err != nil {
		return fmt.Errorf("failed to parse CloudEvent: %w", err)
	}
	return v.ValidateEvent(&event)
}

// SupportedEventTypes returns the event types that have a schema, sorted.
func (v *EventValidator) SupportedEventTypes() []string {
	types := make([]string, 0, len(v.schemas))
	for eventType := range v.schemas {
		types = append(types, eventType)
	}
	sort.Strings(types)
	return types
}

// HasSchema checks if a schema exists for the given event type.
func (v *EventValidator) HasSchema(eventType string) bool {
	_, ok := v.schemas[strings.TrimSpace(eventType)]
	return ok
}
