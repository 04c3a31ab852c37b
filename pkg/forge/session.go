package forge

import "context"

// ITreeSession is the observable surface a host program uses to drive a
// walk and later inspect its outcome. Queries remain valid after the
// walk terminates.
type ITreeSession interface {
	// WalkTree runs the walk to a terminal status, starting (or
	// resuming) from startKey.
	WalkTree(ctx context.Context, startKey string) (WalkStatus, error)

	// CancelWalkTree requests cooperative cancellation of an in-flight
	// walk. Safe to call before, during, or after a walk.
	CancelWalkTree()

	// Status returns the current or final walk status.
	Status() WalkStatus

	// GetOutput returns the committed ActionResponse for actionKey, if
	// any response has been committed for it.
	GetOutput(ctx context.Context, actionKey string) (ActionResponse, bool, error)

	// GetLastActionResponse returns the response for the action named
	// by the LTA state key, if one has been committed.
	GetLastActionResponse(ctx context.Context) (ActionResponse, bool, error)

	// GetCurrentTreeNode returns the node key named by the CTN state
	// key, if the walk has committed at least one node.
	GetCurrentTreeNode(ctx context.Context) (string, bool, error)

	// GetLastTreeAction returns the action key named by the LTA state
	// key, if one has been committed.
	GetLastTreeAction(ctx context.Context) (string, bool, error)

	// SessionID returns the identifier this session's state is
	// namespaced under.
	SessionID() string
}
