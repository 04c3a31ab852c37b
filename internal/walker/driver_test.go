package walker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgewalk/forge/internal/actions"
	"github.com/forgewalk/forge/internal/state"
	"github.com/forgewalk/forge/pkg/forge"
)

// Scenario 1: a linear tree with no selectors runs every node in
// sequence and ends RanToCompletion.
func TestWalkTree_Linear(t *testing.T) {
	reg := actions.NewRegistry()
	var ran []string
	defineAction(t, reg, "step", func(ctx forge.ActionContext) (forge.ActionResponse, error) {
		ran = append(ran, ctx.NodeKey)
		return forge.ActionResponse{"status": "ok"}, nil
	})

	tree := forge.ForgeTree{
		RootKey: "a",
		Nodes: map[string]forge.TreeNode{
			"a": {
				Key: "a", Type: forge.NodeTypeAction,
				Actions:      map[string]forge.TreeAction{"a1": {ActionName: "step"}},
				ActionsOrder: []string{"a1"},
				Children:     []forge.ChildSelector{{Child: "b"}},
			},
			"b": {
				Key: "b", Type: forge.NodeTypeAction,
				Actions:      map[string]forge.TreeAction{"b1": {ActionName: "step"}},
				ActionsOrder: []string{"b1"},
				Children:     []forge.ChildSelector{{Child: "end"}},
			},
			"end": {Key: "end", Type: forge.NodeTypeLeaf},
		},
	}

	st := state.NewMemoryState()
	sess := New("sess-linear", tree, newTestDeps(st, reg))
	status, err := sess.WalkTree(context.Background(), tree.RootKey)

	require.NoError(t, err)
	assert.Equal(t, forge.StatusRanToCompletion, status)
	assert.Equal(t, []string{"a", "b"}, ran)

	node, ok, err := sess.GetCurrentTreeNode(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "end", node)
}

// Scenario 2: an expression-gated branch picks the child whose guard
// evaluates truthy against the prior action's committed response.
func TestWalkTree_ExpressionGatedBranch(t *testing.T) {
	reg := actions.NewRegistry()
	defineAction(t, reg, "classify", func(ctx forge.ActionContext) (forge.ActionResponse, error) {
		return forge.ActionResponse{"status": "ok", "tier": "gold"}, nil
	})
	defineAction(t, reg, "gold-path", func(ctx forge.ActionContext) (forge.ActionResponse, error) {
		return forge.ActionResponse{"status": "ok"}, nil
	})
	defineAction(t, reg, "silver-path", func(ctx forge.ActionContext) (forge.ActionResponse, error) {
		return forge.ActionResponse{"status": "ok"}, nil
	})

	tree := forge.ForgeTree{
		RootKey: "classify",
		Nodes: map[string]forge.TreeNode{
			"classify": {
				Key: "classify", Type: forge.NodeTypeAction,
				Actions:      map[string]forge.TreeAction{"c1": {ActionName: "classify"}},
				ActionsOrder: []string{"c1"},
				Children: []forge.ChildSelector{
					{ShouldSelect: `C#|lastResponse.tier == "gold"`, Child: "gold"},
					{Child: "silver"},
				},
			},
			"gold": {
				Key: "gold", Type: forge.NodeTypeAction,
				Actions:      map[string]forge.TreeAction{"g1": {ActionName: "gold-path"}},
				ActionsOrder: []string{"g1"},
			},
			"silver": {
				Key: "silver", Type: forge.NodeTypeAction,
				Actions:      map[string]forge.TreeAction{"s1": {ActionName: "silver-path"}},
				ActionsOrder: []string{"s1"},
			},
		},
	}

	st := state.NewMemoryState()
	sess := New("sess-branch", tree, newTestDeps(st, reg))
	status, err := sess.WalkTree(context.Background(), tree.RootKey)

	require.NoError(t, err)
	assert.Equal(t, forge.StatusRanToCompletion, status)
	node, _, _ := sess.GetCurrentTreeNode(context.Background())
	assert.Equal(t, "gold", node)
}

// Scenario 3: a Selection node whose guards all evaluate false ends the
// walk with RanToCompletion_NoChildMatched and no error.
func TestWalkTree_NoChildMatched(t *testing.T) {
	reg := actions.NewRegistry()
	tree := forge.ForgeTree{
		RootKey: "pick",
		Nodes: map[string]forge.TreeNode{
			"pick": {
				Key: "pick", Type: forge.NodeTypeSelection,
				Children: []forge.ChildSelector{
					{ShouldSelect: `C#<Boolean>|1 == 2`, Child: "unreachable"},
				},
			},
			"unreachable": {Key: "unreachable", Type: forge.NodeTypeLeaf},
		},
	}

	st := state.NewMemoryState()
	sess := New("sess-nomatch", tree, newTestDeps(st, reg))
	status, err := sess.WalkTree(context.Background(), tree.RootKey)

	require.NoError(t, err)
	assert.Equal(t, forge.StatusRanToCompletionNoChild, status)
}

// Scenario 4: an action that never returns, with continuationOnTimeout
// set, ends the walk by committing a synthetic TimeoutOnAction response
// and letting the walk proceed rather than fail.
func TestWalkTree_ActionTimeoutWithContinuation(t *testing.T) {
	reg := actions.NewRegistry()
	block := make(chan struct{}) // never closed: the action hangs past its timeout
	defer close(block)
	defineAction(t, reg, "slow", blockingAction(block))
	defineAction(t, reg, "after", func(ctx forge.ActionContext) (forge.ActionResponse, error) {
		return forge.ActionResponse{"status": "ok"}, nil
	})

	tree := forge.ForgeTree{
		RootKey: "wait",
		Nodes: map[string]forge.TreeNode{
			"wait": {
				Key: "wait", Type: forge.NodeTypeAction,
				Actions: map[string]forge.TreeAction{
					"w1": {ActionName: "slow", Timeout: 20, ContinuationOnTimeout: true},
				},
				ActionsOrder: []string{"w1"},
				Children:     []forge.ChildSelector{{Child: "done"}},
			},
			"done": {
				Key: "done", Type: forge.NodeTypeAction,
				Actions:      map[string]forge.TreeAction{"d1": {ActionName: "after"}},
				ActionsOrder: []string{"d1"},
			},
		},
	}

	st := state.NewMemoryState()
	sess := New("sess-timeout", tree, newTestDeps(st, reg))
	status, err := sess.WalkTree(context.Background(), tree.RootKey)

	require.NoError(t, err)
	assert.Equal(t, forge.StatusRanToCompletion, status)

	resp, ok, err := sess.GetOutput(context.Background(), "w1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, forge.StatusTimeoutOnAction, resp.Status())
}

// Scenario 5: a fixed-interval retry policy retries a failing action on
// a constant backoff and succeeds once the action stops failing, well
// within the action's own timeout budget.
func TestWalkTree_RetryFixedInterval(t *testing.T) {
	reg := actions.NewRegistry()
	defineAction(t, reg, "flaky", countingAction(2,
		forge.ActionResponse{"status": "ok"},
		forge.NewError(forge.ErrCodeFailed, "transient")))

	tree := forge.ForgeTree{
		RootKey: "n",
		Nodes: map[string]forge.TreeNode{
			"n": {
				Key: "n", Type: forge.NodeTypeAction,
				Actions: map[string]forge.TreeAction{
					"a1": {
						ActionName: "flaky",
						Timeout:    5000,
						RetryPolicy: &forge.RetryPolicy{
							Type: forge.RetryFixedInterval, MinBackoffMs: 5,
						},
					},
				},
				ActionsOrder: []string{"a1"},
			},
		},
	}

	st := state.NewMemoryState()
	sess := New("sess-retry", tree, newTestDeps(st, reg))
	status, err := sess.WalkTree(context.Background(), tree.RootKey)

	require.NoError(t, err)
	assert.Equal(t, forge.StatusRanToCompletion, status)
	resp, ok, err := sess.GetOutput(context.Background(), "a1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ok", resp.Status())
}

// Scenario 6: rehydrating a session that already has a committed
// response for an action skips that action without re-invoking it and
// proceeds from where the prior attempt left off.
func TestWalkTree_Rehydration(t *testing.T) {
	reg := actions.NewRegistry()
	calls := 0
	defineAction(t, reg, "once", func(ctx forge.ActionContext) (forge.ActionResponse, error) {
		calls++
		return forge.ActionResponse{"status": "ok"}, nil
	})

	tree := forge.ForgeTree{
		RootKey: "n",
		Nodes: map[string]forge.TreeNode{
			"n": {
				Key: "n", Type: forge.NodeTypeAction,
				Actions:      map[string]forge.TreeAction{"a1": {ActionName: "once"}},
				ActionsOrder: []string{"a1"},
				Children:     []forge.ChildSelector{{Child: "end"}},
			},
			"end": {Key: "end", Type: forge.NodeTypeLeaf},
		},
	}

	st := state.NewMemoryState()
	sessionID := "sess-rehydrate"

	// Pre-seed state as if a prior attempt already committed a1's
	// response but crashed before moving past the node.
	first := New(sessionID, tree, newTestDeps(st, reg))
	_, err := first.WalkTree(context.Background(), tree.RootKey)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	// A fresh Session bound to the same sessionID, walked again from the
	// same node, must rehydrate a1's committed response rather than
	// re-invoke the action.
	resumed := New(sessionID, tree, newTestDeps(st, reg))
	status, err := resumed.WalkTree(context.Background(), tree.RootKey)

	require.NoError(t, err)
	assert.Equal(t, forge.StatusRanToCompletion, status)
	assert.Equal(t, 1, calls, "rehydrated walk must not re-invoke an already-committed action")
}

// Scenario 7: a Leaf node carrying the reserved summary action commits
// its evaluated input directly as the action's response.
func TestWalkTree_LeafSummary(t *testing.T) {
	reg := actions.NewRegistry()
	tree := forge.ForgeTree{
		RootKey: "end",
		Nodes: map[string]forge.TreeNode{
			"end": {
				Key: "end", Type: forge.NodeTypeLeaf,
				Actions: map[string]forge.TreeAction{
					"summary": {
						ActionName: forge.ReservedLeafSummaryAction,
						Input:      map[string]any{"status": "done", "count": 3},
					},
				},
				ActionsOrder: []string{"summary"},
			},
		},
	}

	st := state.NewMemoryState()
	sess := New("sess-leaf", tree, newTestDeps(st, reg))
	status, err := sess.WalkTree(context.Background(), tree.RootKey)

	require.NoError(t, err)
	assert.Equal(t, forge.StatusRanToCompletion, status)

	resp, ok, err := sess.GetOutput(context.Background(), "summary")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "done", resp.Status())
	assert.EqualValues(t, 3, resp["count"])
}

func TestWalkTree_CancelledBeforeExecution(t *testing.T) {
	reg := actions.NewRegistry()
	tree := forge.ForgeTree{
		RootKey: "n",
		Nodes: map[string]forge.TreeNode{
			"n": {Key: "n", Type: forge.NodeTypeLeaf},
		},
	}
	st := state.NewMemoryState()
	sess := New("sess-cancel", tree, newTestDeps(st, reg))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	status, err := sess.WalkTree(ctx, tree.RootKey)

	require.Error(t, err)
	assert.Equal(t, forge.StatusCancelledBeforeExecution, status)
}

func TestWalkTree_CancelMidFlight(t *testing.T) {
	reg := actions.NewRegistry()
	block := make(chan struct{})
	defer close(block)
	defineAction(t, reg, "hang", blockingAction(block))

	tree := forge.ForgeTree{
		RootKey: "n",
		Nodes: map[string]forge.TreeNode{
			"n": {
				Key: "n", Type: forge.NodeTypeAction,
				Actions:      map[string]forge.TreeAction{"a1": {ActionName: "hang"}},
				ActionsOrder: []string{"a1"},
			},
		},
	}
	st := state.NewMemoryState()
	sess := New("sess-cancel-midflight", tree, newTestDeps(st, reg))

	go func() {
		time.Sleep(20 * time.Millisecond)
		sess.CancelWalkTree()
	}()

	status, err := sess.WalkTree(context.Background(), tree.RootKey)
	require.Error(t, err)
	assert.Equal(t, forge.StatusCancelled, status)
}

func TestWalkTree_UnknownNodeKeyFails(t *testing.T) {
	reg := actions.NewRegistry()
	tree := forge.ForgeTree{
		RootKey: "missing",
		Nodes:   map[string]forge.TreeNode{},
	}
	st := state.NewMemoryState()
	sess := New("sess-unknown", tree, newTestDeps(st, reg))

	status, err := sess.WalkTree(context.Background(), tree.RootKey)
	require.Error(t, err)
	assert.Equal(t, forge.StatusFailed, status)
}

func TestWalkTree_UnknownActionNameIsSkipped(t *testing.T) {
	reg := actions.NewRegistry()
	tree := forge.ForgeTree{
		RootKey: "n",
		Nodes: map[string]forge.TreeNode{
			"n": {
				Key: "n", Type: forge.NodeTypeAction,
				Actions:      map[string]forge.TreeAction{"a1": {ActionName: "does-not-exist"}},
				ActionsOrder: []string{"a1"},
			},
		},
	}
	st := state.NewMemoryState()
	sess := New("sess-unknown-action", tree, newTestDeps(st, reg))

	status, err := sess.WalkTree(context.Background(), tree.RootKey)
	require.NoError(t, err)
	assert.Equal(t, forge.StatusRanToCompletion, status)

	_, ok, _ := sess.GetOutput(context.Background(), "a1")
	assert.False(t, ok)
}

func TestWalkTree_BeforeVisitNodeCallbackCanAbortWalk(t *testing.T) {
	reg := actions.NewRegistry()
	tree := forge.ForgeTree{
		RootKey: "n",
		Nodes: map[string]forge.TreeNode{
			"n": {Key: "n", Type: forge.NodeTypeLeaf},
		},
	}
	st := state.NewMemoryState()
	deps := newTestDeps(st, reg)
	abortErr := forge.NewError(forge.ErrCodeFailed, "rejected by host")
	deps.Callbacks.BeforeVisitNode = func(ctx context.Context, sessionID, nodeKey string, properties map[string]any, userContext any, token string) error {
		return abortErr
	}
	sess := New("sess-abort", tree, deps)

	status, err := sess.WalkTree(context.Background(), tree.RootKey)
	require.Error(t, err)
	assert.Equal(t, forge.StatusFailed, status)
}
