package tool

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidDescriptor is returned by Descriptor.Validate.
var ErrInvalidDescriptor = errors.New("invalid tool descriptor")

var toolNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// Property describes one named argument.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Schema is the JSON-schema subset used for tool parameters.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Descriptor is the static metadata an invoker uses to discover and call a tool.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// Validate checks the descriptor once, at registration time.
func (d Descriptor) Validate() error {
	if !toolNamePattern.MatchString(d.Name) {
		return fmt.Errorf("%w: name %q must match %s", ErrInvalidDescriptor, d.Name, toolNamePattern)
	}
	if d.Description == "" {
		return fmt.Errorf("%w: %s: description is required", ErrInvalidDescriptor, d.Name)
	}
	if d.Parameters.Type != "object" {
		return fmt.Errorf("%w: %s: parameters type must be object, got %q", ErrInvalidDescriptor, d.Name, d.Parameters.Type)
	}
	for name, p := range d.Parameters.Properties {
		switch p.Type {
		case "number", "integer", "string", "boolean", "object", "array":
		default:
			return fmt.Errorf("%w: %s: property %q has unsupported type %q", ErrInvalidDescriptor, d.Name, name, p.Type)
		}
	}
	seen := make(map[string]struct{}, len(d.Parameters.Required))
	for _, name := range d.Parameters.Required {
		if _, ok := d.Parameters.Properties[name]; !ok {
			return fmt.Errorf("%w: %s: required field %q has no property", ErrInvalidDescriptor, d.Name, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: %s: required field %q listed twice", ErrInvalidDescriptor, d.Name, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// ParametersMap renders the schema as a generic JSON object.
func (d Descriptor) ParametersMap() map[string]interface{} {
	props := make(map[string]interface{}, len(d.Parameters.Properties))
	for name, p := range d.Parameters.Properties {
		prop := map[string]interface{}{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[name] = prop
	}
	required := make([]string, len(d.Parameters.Required))
	copy(required, d.Parameters.Required)
	return map[string]interface{}{
		"type":       d.Parameters.Type,
		"properties": props,
		"required":   required,
	}
}

// Definition renders the OpenAI-compatible function definition:
// {"type": "function", "function": {"name", "description", "parameters"}}.
func (d Descriptor) Definition() map[string]interface{} {
	return map[string]interface{}{
		"type": "function",
		"function": map[string]interface{}{
			"name":        d.Name,
			"description": d.Description,
			"parameters":  d.ParametersMap(),
		},
	}
}
