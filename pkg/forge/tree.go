// Package forge defines the data model for a schema-driven workflow tree:
// nodes, actions, child selectors and the observable session surface that
// a host program uses to drive a walk to completion.
package forge

import "sort"

// NodeType enumerates the three kinds of node a tree can contain.
type NodeType string

const (
	NodeTypeLeaf      NodeType = "leaf"
	NodeTypeAction    NodeType = "action"
	NodeTypeSelection NodeType = "selection"
)

// ForgeTree is the root of a schema-driven workflow definition: a map of
// node keys to their definitions, plus the key of the node a fresh walk
// starts from.
type ForgeTree struct {
	RootKey string              `json:"rootKey"`
	Nodes   map[string]TreeNode `json:"nodes"`
}

// TreeNode is a single vertex in the tree. Its Type determines which of
// Actions (Action nodes) or Children (Selection nodes) is meaningful;
// Leaf nodes use neither.
//
// ActionsOrder preserves schema declaration order for Actions, since Go
// maps don't, and the rehydration repair picks "the first skipped
// action" by that order.
type TreeNode struct {
	Key          string            `json:"key"`
	Type         NodeType          `json:"type"`
	Timeout      any               `json:"timeout,omitempty"` // expression string, integer ms, or -1/absent for infinite
	Actions      map[string]TreeAction `json:"actions,omitempty"`
	ActionsOrder []string          `json:"-"`
	Children     []ChildSelector   `json:"childSelector,omitempty"`
	Properties   map[string]any    `json:"properties,omitempty"`
}

// OrderedActionKeys returns action keys in schema declaration order,
// falling back to a stable lexical order if ActionsOrder wasn't set
// (e.g. when a tree was constructed programmatically).
func (n TreeNode) OrderedActionKeys() []string {
	if len(n.ActionsOrder) == len(n.Actions) {
		return n.ActionsOrder
	}
	keys := make([]string, 0, len(n.Actions))
	for k := range n.Actions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TreeAction is one action scheduled by an Action node. Its map key in
// TreeNode.Actions is the action key, unique within the owning node.
type TreeAction struct {
	ActionName                    string         `json:"action"`
	Input                         any            `json:"input,omitempty"`
	Properties                    map[string]any `json:"properties,omitempty"`
	Timeout                       any            `json:"timeout,omitempty"`
	RetryPolicy                   *RetryPolicy   `json:"retryPolicy,omitempty"`
	ContinuationOnTimeout         bool           `json:"continuationOnTimeout,omitempty"`
	ContinuationOnRetryExhaustion bool           `json:"continuationOnRetryExhaustion,omitempty"`
}

// ChildSelector picks the next node to visit from a Selection node. The
// first selector whose ShouldSelect expression evaluates truthy wins;
// a selector with an empty ShouldSelect is an unconditional default and
// should be ordered last. Selectors are iterated in schema order, so
// when a tree is parsed from a map-shaped source the loader must
// preserve that order into this slice.
type ChildSelector struct {
	ShouldSelect string `json:"shouldSelect,omitempty" yaml:"shouldSelect,omitempty"`
	Child        string `json:"child" yaml:"child"`
}

// RetryKind enumerates the retry backoff strategies an action can use.
type RetryKind string

const (
	RetryNone               RetryKind = "None"
	RetryFixedInterval      RetryKind = "FixedInterval"
	RetryExponentialBackoff RetryKind = "ExponentialBackoff"
)

// RetryPolicy configures how many times, and on what schedule, a failed
// action is retried before being considered exhausted.
type RetryPolicy struct {
	Type         RetryKind `json:"type" yaml:"type"`
	MinBackoffMs int64     `json:"minBackoffMs,omitempty" yaml:"minBackoffMs,omitempty"`
	MaxBackoffMs int64     `json:"maxBackoffMs,omitempty" yaml:"maxBackoffMs,omitempty"`
}

// ActionResponse is the opaque result envelope an action returns. It is
// persisted verbatim per action key and must carry at least a "status"
// field; synthetic responses use the reserved statuses TimeoutOnAction
// and RetryExhaustedOnAction.
type ActionResponse map[string]any

// Status returns the envelope's status field, or "" if absent or not a
// string.
func (r ActionResponse) Status() string {
	if r == nil {
		return ""
	}
	s, _ := r["status"].(string)
	return s
}

// SyntheticResponse builds a minimal ActionResponse carrying only the
// given reserved status, as committed by the retry controller and the
// single-action invocation path when a continuation flag fires.
func SyntheticResponse(status string) ActionResponse {
	return ActionResponse{"status": status}
}

const (
	StatusTimeoutOnAction        = "TimeoutOnAction"
	StatusRetryExhaustedOnAction = "RetryExhaustedOnAction"
)

// ReservedLeafSummaryAction is the only action name legal on a Leaf node;
// a Leaf carrying exactly one action under this name has that action's
// input committed directly as its response.
const ReservedLeafSummaryAction = "LeafNodeSummaryAction"
