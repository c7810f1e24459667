package models

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Config holds a node's free-form fields. Keys keep insertion order, which is
// the enumeration order used when a node's label has no argument mapping.
// The zero value is an empty, usable Config.
type Config struct {
	m *orderedmap.OrderedMap[string, string]
}

// NewConfig builds a Config from alternating key, value pairs.
func NewConfig(kv ...string) Config {
	var c Config
	for i := 0; i+1 < len(kv); i += 2 {
		c.Set(kv[i], kv[i+1])
	}
	return c
}

// Get returns the value stored under key.
func (c Config) Get(key string) (string, bool) {
	if c.m == nil {
		return "", false
	}
	return c.m.Get(key)
}

// Set stores value under key. Existing keys keep their position.
func (c *Config) Set(key, value string) {
	if c.m == nil {
		c.m = orderedmap.New[string, string]()
	}
	c.m.Set(key, value)
}

// Len returns the number of fields.
func (c Config) Len() int {
	if c.m == nil {
		return 0
	}
	return c.m.Len()
}

// Keys returns the field names in enumeration order.
func (c Config) Keys() []string {
	keys := make([]string, 0, c.Len())
	if c.m == nil {
		return keys
	}
	for pair := c.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Values returns the field values in enumeration order.
func (c Config) Values() []string {
	values := make([]string, 0, c.Len())
	if c.m == nil {
		return values
	}
	for pair := c.m.Oldest(); pair != nil; pair = pair.Next() {
		values = append(values, pair.Value)
	}
	return values
}

// Clone returns an independent copy.
func (c Config) Clone() Config {
	var out Config
	if c.m == nil {
		return out
	}
	for pair := c.m.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, pair.Value)
	}
	return out
}

// MarshalJSON writes the fields as a JSON object in enumeration order.
func (c Config) MarshalJSON() ([]byte, error) {
	if c.m == nil {
		return []byte("{}"), nil
	}
	return c.m.MarshalJSON()
}

// UnmarshalJSON reads a JSON object, keeping the document's key order.
func (c *Config) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		c.m = nil
		return nil
	}
	m := orderedmap.New[string, string]()
	if err := m.UnmarshalJSON(data); err != nil {
		return err
	}
	c.m = m
	return nil
}
