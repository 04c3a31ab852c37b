package actions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgewalk/forge/pkg/forge"
)

func TestRegistry_RegisterAndGetProducesFreshInstancePerCall(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&echoAction{}))

	def, ok := reg.Get("module.echo")
	require.True(t, ok)

	a1 := def.New()
	a2 := def.New()
	assert.NotSame(t, a1, a2)

	resp, err := a1.RunAction(forge.ActionContext{Ctx: context.Background(), Input: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", resp["got"])
}

func TestRegistry_RegisterDuplicateNameIsConflict(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&echoAction{}))

	err := reg.Register(&echoAction{})
	fe, ok := err.(*forge.ForgeError)
	require.True(t, ok)
	assert.Equal(t, forge.ErrCodeConflict, fe.Code)
}

func TestRegistry_RegisterNilOrUnnamedIsValidationError(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(nil)
	fe, ok := err.(*forge.ForgeError)
	require.True(t, ok)
	assert.Equal(t, forge.ErrCodeValidation, fe.Code)
}

func TestRegistry_GetUnknownNameReturnsFalseNotError(t *testing.T) {
	reg := NewRegistry()
	_, ok := reg.Get("nonexistent")
	assert.False(t, ok)
}

func TestRegistry_ListIsSorted(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&echoAction{}))
	require.NoError(t, reg.RegisterDefinition(&forge.ActionDefinition{
		Name: "aaa.first",
		New:  func() forge.Action { return &echoAction{} },
	}))

	assert.Equal(t, []string{"aaa.first", "module.echo"}, reg.List())
}

func TestRegistry_HasAndCount(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, 0, reg.Count())
	assert.False(t, reg.Has("module.echo"))

	require.NoError(t, reg.Register(&echoAction{}))
	assert.Equal(t, 1, reg.Count())
	assert.True(t, reg.Has("module.echo"))
}

func TestRegistry_RegisterPluginPrefixesNames(t *testing.T) {
	reg := NewRegistry()
	n, err := reg.RegisterPlugin("github", []NamedAction{&echoAction{}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, reg.Has("github.module.echo"))
	assert.False(t, reg.Has("module.echo"))

	def, ok := reg.Get("github.module.echo")
	require.True(t, ok)
	resp, err := def.New().RunAction(forge.ActionContext{Ctx: context.Background(), Input: "y"})
	require.NoError(t, err)
	assert.Equal(t, "y", resp["got"])
}

func TestRegistry_RegisterPluginEmptyPrefixIsValidationError(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.RegisterPlugin("", []NamedAction{&echoAction{}})
	fe, ok := err.(*forge.ForgeError)
	require.True(t, ok)
	assert.Equal(t, forge.ErrCodeValidation, fe.Code)
}
