package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowbuilder/backend/pkg/models"
)

func TestLookup(t *testing.T) {
	tmpl, ok := Lookup(models.KindAction, "Send POST Request")
	require.True(t, ok)
	assert.Equal(t, []string{"endpoint", "body"}, tmpl.NewConfig().Keys())
	assert.Equal(t, []string{"/api/contracts", "${xml_data}"}, tmpl.NewArgs())

	_, ok = Lookup(models.KindAssertion, "Send POST Request")
	assert.False(t, ok, "kind must match as well as label")
}

func TestNewConfig_ReturnsFreshCopies(t *testing.T) {
	tmpl, ok := Lookup(models.KindAssertion, "Validate Response Status")
	require.True(t, ok)

	a := tmpl.NewConfig()
	a.Set("status_code", "500")
	b := tmpl.NewConfig()

	v, _ := b.Get("status_code")
	assert.Equal(t, "201", v)

	args := tmpl.NewArgs()
	args[0] = "500"
	assert.Equal(t, []string{"201"}, tmpl.NewArgs())
}

func TestArgKeys(t *testing.T) {
	keys, ok := ArgKeys("Validate XML Schema")
	require.True(t, ok)
	assert.Equal(t, []string{"body", "schema"}, keys)

	_, ok = ArgKeys("Context: Contract Creation")
	assert.False(t, ok)

	_, ok = ArgKeys("Unknown Step")
	assert.False(t, ok)
}

func TestSearch(t *testing.T) {
	assert.Len(t, Search(""), len(All()))

	found := Search("validate")
	require.Len(t, found, 2)
	for _, tmpl := range found {
		assert.Equal(t, models.KindAssertion, tmpl.Kind)
	}

	assert.Empty(t, Search("no such template"))
}
