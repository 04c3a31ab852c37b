package expressions

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgewalk/forge/pkg/forge"
)

func TestExprExecutor_EvaluatesAgainstSessionScope(t *testing.T) {
	session := &fakeSession{lastResponse: forge.ActionResponse{"tier": "gold"}, lastRespOK: true}
	e := NewExprExecutor()

	out, err := e.Execute(context.Background(), `lastResponse.tier == "gold"`, nil, session)
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

func TestExprExecutor_CoercesResultToKnownType(t *testing.T) {
	e := NewExprExecutor()
	out, err := e.Execute(context.Background(), "1 + 2", reflect.TypeOf(int64(0)), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out)
}

func TestExprExecutor_EmptySourceIsValidationError(t *testing.T) {
	e := NewExprExecutor()
	_, err := e.Execute(context.Background(), "", nil, nil)
	fe, ok := err.(*forge.ForgeError)
	require.True(t, ok)
	assert.Equal(t, forge.ErrCodeValidation, fe.Code)
}

func TestExprExecutor_CompileErrorIsValidationError(t *testing.T) {
	e := NewExprExecutor()
	_, err := e.Execute(context.Background(), "1 +++ ", nil, nil)
	fe, ok := err.(*forge.ForgeError)
	require.True(t, ok)
	assert.Equal(t, forge.ErrCodeValidation, fe.Code)
}

func TestExprExecutor_RuntimeErrorIsEvaluateDynamicPropertyError(t *testing.T) {
	e := NewExprExecutor()
	_, err := e.Execute(context.Background(), `lastResponse.count % 0`, nil, nil)
	// the operands are only known at run time, so the failure comes from
	// running the program, not compiling it, and must surface as a forge
	// error with the dynamic-property code, not a bare Go error.
	fe, ok := err.(*forge.ForgeError)
	require.True(t, ok)
	assert.Equal(t, forge.ErrCodeEvaluateDynamicProperty, fe.Code)
}

func TestExprExecutor_CachesCompiledPrograms(t *testing.T) {
	e := NewExprExecutor()
	_, err := e.Execute(context.Background(), "1 + 1", nil, nil)
	require.NoError(t, err)
	assert.Len(t, e.cache, 1)

	_, err = e.Execute(context.Background(), "1 + 1", nil, nil)
	require.NoError(t, err)
	assert.Len(t, e.cache, 1)
}
