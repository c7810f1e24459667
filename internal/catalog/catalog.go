// Package catalog holds the static node templates offered by the palette.
package catalog

import (
	"strings"

	"flowbuilder/backend/pkg/models"
)

// Field is one template-defined config entry and its default value.
type Field struct {
	Key     string `json:"key"`
	Default string `json:"default"`
}

// NodeTemplate defines the defaults for a (kind, label) pair.
type NodeTemplate struct {
	Kind        models.Kind `json:"type"`
	Label       string      `json:"label"`
	Fields      []Field     `json:"fields"`
	ArgKeys     []string    `json:"arg_keys,omitempty"`
	DefaultArgs []string    `json:"default_args,omitempty"`
}

// NewConfig returns a fresh config seeded with the template defaults.
func (t NodeTemplate) NewConfig() models.Config {
	var c models.Config
	for _, f := range t.Fields {
		c.Set(f.Key, f.Default)
	}
	return c
}

// NewArgs returns a fresh copy of the default positional args.
func (t NodeTemplate) NewArgs() []string {
	if len(t.DefaultArgs) == 0 {
		return nil
	}
	return append([]string(nil), t.DefaultArgs...)
}

var templates = []NodeTemplate{
	{
		Kind:  models.KindContext,
		Label: "Context: Contract Creation",
		Fields: []Field{
			{Key: "key", Default: "contract_creation"},
			{Key: "value", Default: "<Contract><CustomerID>12345</CustomerID><Tariff>Day</Tariff></Contract>"},
		},
	},
	{
		Kind:        models.KindTrigger,
		Label:       "Page Load",
		Fields:      []Field{{Key: "url", Default: "https://example.com"}},
		ArgKeys:     []string{"url"},
		DefaultArgs: []string{"https://example.com"},
	},
	{
		Kind:  models.KindAction,
		Label: "Send POST Request",
		Fields: []Field{
			{Key: "endpoint", Default: "/api/contracts"},
			{Key: "body", Default: "${xml_data}"},
		},
		ArgKeys:     []string{"endpoint", "body"},
		DefaultArgs: []string{"/api/contracts", "${xml_data}"},
	},
	{
		Kind:        models.KindAction,
		Label:       "Click Element",
		Fields:      []Field{{Key: "selector", Default: "#login-button"}},
		ArgKeys:     []string{"selector"},
		DefaultArgs: []string{"#login-button"},
	},
	{
		Kind:        models.KindAssertion,
		Label:       "Validate Response Status",
		Fields:      []Field{{Key: "status_code", Default: "201"}},
		ArgKeys:     []string{"status_code"},
		DefaultArgs: []string{"201"},
	},
	{
		Kind:  models.KindAssertion,
		Label: "Validate XML Schema",
		Fields: []Field{
			{Key: "body", Default: "${response_body}"},
			{Key: "schema", Default: "schemas/contract_creation_schema.xsd"},
		},
		ArgKeys:     []string{"body", "schema"},
		DefaultArgs: []string{"${response_body}", "schemas/contract_creation_schema.xsd"},
	},
	{
		Kind:        models.KindAssertion,
		Label:       "Element Exists",
		Fields:      []Field{{Key: "selector", Default: ".dashboard-header"}},
		ArgKeys:     []string{"selector"},
		DefaultArgs: []string{".dashboard-header"},
	},
}

// All returns every template in palette order.
func All() []NodeTemplate {
	out := make([]NodeTemplate, len(templates))
	copy(out, templates)
	return out
}

// Lookup finds the template for a (kind, label) pair.
func Lookup(kind models.Kind, label string) (NodeTemplate, bool) {
	for _, t := range templates {
		if t.Kind == kind && t.Label == label {
			return t, true
		}
	}
	return NodeTemplate{}, false
}

// ArgKeys returns the config keys that become positional step arguments for
// label, in order. Labels are unique across kinds for step templates.
func ArgKeys(label string) ([]string, bool) {
	for _, t := range templates {
		if t.Label == label && t.Kind != models.KindContext {
			return t.ArgKeys, true
		}
	}
	return nil, false
}

// Search returns the templates whose label contains term, ignoring case.
func Search(term string) []NodeTemplate {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return All()
	}
	var out []NodeTemplate
	for _, t := range templates {
		if strings.Contains(strings.ToLower(t.Label), term) {
			out = append(out, t)
		}
	}
	return out
}
