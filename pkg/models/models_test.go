package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_PreservesInsertionOrder(t *testing.T) {
	c := NewConfig("zeta", "1", "alpha", "2")
	c.Set("mid", "3")
	c.Set("zeta", "updated")

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, c.Keys())
	assert.Equal(t, []string{"updated", "2", "3"}, c.Values())

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"zeta":"updated","alpha":"2","mid":"3"}`, string(data))

	var decoded Config
	require.NoError(t, json.Unmarshal([]byte(`{"b":"x","a":"y"}`), &decoded))
	assert.Equal(t, []string{"b", "a"}, decoded.Keys())
}

func TestConfig_ZeroValue(t *testing.T) {
	var c Config
	_, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Keys())

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestNode_CloneIsIndependent(t *testing.T) {
	n := Node{ID: "n1", Kind: KindAction, Config: NewConfig("selector", "#a"), Args: []string{"#a"}}
	cp := n.Clone()
	cp.Config.Set("selector", "#b")
	cp.Args[0] = "#b"

	v, _ := n.Config.Get("selector")
	assert.Equal(t, "#a", v)
	assert.Equal(t, "#a", n.Args[0])
}

func TestNode_ContextEntry(t *testing.T) {
	ctxNode := Node{Kind: KindContext, Config: NewConfig("key", "k", "value", "v")}
	key, value, ok := ctxNode.ContextEntry()
	assert.True(t, ok)
	assert.Equal(t, "k", key)
	assert.Equal(t, "v", value)

	_, _, ok = Node{Kind: KindContext, Config: NewConfig("key", "k")}.ContextEntry()
	assert.False(t, ok)

	_, _, ok = Node{Kind: KindAction, Config: NewConfig("key", "k", "value", "v")}.ContextEntry()
	assert.False(t, ok)
}

func TestResult_CloneCopiesAnalysis(t *testing.T) {
	line := 3
	r := &Result{
		ID:       "r1",
		Steps:    []StepResult{{Name: "a", Status: StatusPassed}},
		Analysis: &Analysis{Failed: 1, Errors: []ErrorDetail{{Keyword: "a", Message: "m", Line: &line}}},
	}
	cp := r.Clone()
	cp.Steps[0].Status = StatusFailed
	*cp.Analysis.Errors[0].Line = 9

	assert.Equal(t, StatusPassed, r.Steps[0].Status)
	assert.Equal(t, 3, *r.Analysis.Errors[0].Line)
}

func TestKind_Valid(t *testing.T) {
	assert.True(t, KindTrigger.Valid())
	assert.False(t, Kind("widget").Valid())
}

func TestPosition_AddSub(t *testing.T) {
	p := Position{X: 10, Y: 20}
	d := Position{X: -3, Y: 5}

	assert.Equal(t, Position{X: 7, Y: 25}, p.Add(d))
	assert.Equal(t, Position{X: 13, Y: 15}, p.Sub(d))
	assert.Equal(t, p, p.Add(d).Sub(d))
}
