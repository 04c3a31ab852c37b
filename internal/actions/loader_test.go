package actions

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgewalk/forge/pkg/forge"
)

type echoAction struct {
	forge.BaseAction
}

func (a *echoAction) Name() string           { return "module.echo" }
func (a *echoAction) InputType() reflect.Type { return nil }
func (a *echoAction) RunAction(ctx forge.ActionContext) (forge.ActionResponse, error) {
	return forge.ActionResponse{"got": ctx.Input}, nil
}

type validModule struct {
	Echo   *echoAction
	Config string // not an Action: skipped silently
}

func TestLoadModule_RegistersActionBearingFields(t *testing.T) {
	reg := NewRegistry()
	mod := &validModule{Echo: &echoAction{}, Config: "unused"}

	n, err := LoadModule(reg, mod)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, reg.Has("module.echo"))

	resp, err := runNamed(t, reg, "module.echo", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", resp["got"])
}

func TestLoadModule_AcceptsStructValueNotJustPointer(t *testing.T) {
	reg := NewRegistry()
	mod := validModule{Echo: &echoAction{}}

	n, err := LoadModule(reg, mod)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoadModule_NilPointerIsValidationError(t *testing.T) {
	reg := NewRegistry()
	var mod *validModule
	_, err := LoadModule(reg, mod)
	fe, ok := err.(*forge.ForgeError)
	require.True(t, ok)
	assert.Equal(t, forge.ErrCodeValidation, fe.Code)
}

func TestLoadModule_NonStructIsValidationError(t *testing.T) {
	reg := NewRegistry()
	_, err := LoadModule(reg, 42)
	fe, ok := err.(*forge.ForgeError)
	require.True(t, ok)
	assert.Equal(t, forge.ErrCodeValidation, fe.Code)
}

// actionWithoutBase implements forge.Action but does not embed
// forge.BaseAction, so LoadModule must reject it.
type actionWithoutBase struct{}

func (a *actionWithoutBase) RunAction(ctx forge.ActionContext) (forge.ActionResponse, error) {
	return nil, nil
}
func (a *actionWithoutBase) Name() string           { return "bad" }
func (a *actionWithoutBase) InputType() reflect.Type { return nil }

type moduleMissingBaseAction struct {
	Bad *actionWithoutBase
}

func TestLoadModule_FieldMissingBaseActionIsRejected(t *testing.T) {
	reg := NewRegistry()
	mod := &moduleMissingBaseAction{Bad: &actionWithoutBase{}}

	_, err := LoadModule(reg, mod)
	fe, ok := err.(*forge.ForgeError)
	require.True(t, ok)
	assert.Equal(t, forge.ErrCodeValidation, fe.Code)
}

func TestLoadModule_IgnoresUnexportedAndNonActionFields(t *testing.T) {
	reg := NewRegistry()
	mod := &struct {
		unexported *echoAction
		Plain      int
	}{unexported: &echoAction{}, Plain: 7}

	n, err := LoadModule(reg, mod)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
