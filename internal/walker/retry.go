package walker

import (
	"context"
	"errors"
	"time"

	"github.com/forgewalk/forge/internal/logging"
	"github.com/forgewalk/forge/pkg/forge"
)

// runRetryController drives retries for one action under backoff.
// actionTimeout and the retry policy are evaluated once, up front; a
// single deadline-bearing context is derived and shared across every
// attempt so it both bounds the retry sleeps and races each invocation
// — a single timer started when the retry controller begins.
func (s *Session) runRetryController(ctx context.Context, nodeKey, actionKey string, ta forge.TreeAction, def *forge.ActionDefinition) error {
	timeoutMs, err := s.evalTimeout(ctx, ta.Timeout)
	if err != nil {
		return err
	}
	policy := ta.RetryPolicy
	if policy == nil {
		policy = &forge.RetryPolicy{Type: forge.RetryNone}
	}

	deadlineCtx := ctx
	cancelDeadline := func() {}
	if timeoutMs != -1 {
		deadlineCtx, cancelDeadline = context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	}
	defer cancelDeadline()

	start := time.Now()
	var innerErr error
	var prevWaitMs int64
	retryCount := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		attemptCtx := logging.WithAttempt(deadlineCtx, retryCount+1)
		_, err := s.invokeSingleAction(attemptCtx, ctx, nodeKey, actionKey, ta, def)
		if err == nil {
			return nil
		}
		if isNonRetriable(err) {
			return err
		}

		innerErr = err
		retryCount++
		s.logger.WarnContext(ctx, "action failed, evaluating retry",
			"node_key", nodeKey, "action_key", actionKey, "action", ta.ActionName,
			"retry_count", retryCount, "error", err)

		var waitMs int64
		switch policy.Type {
		case forge.RetryFixedInterval:
			waitMs = policy.MinBackoffMs
		case forge.RetryExponentialBackoff:
			if prevWaitMs == 0 {
				prevWaitMs = policy.MinBackoffMs
			} else {
				prevWaitMs *= 2
			}
			if policy.MaxBackoffMs > 0 && prevWaitMs > policy.MaxBackoffMs {
				prevWaitMs = policy.MaxBackoffMs
			}
			waitMs = prevWaitMs
		default: // None
			if ta.ContinuationOnRetryExhaustion {
				resp := forge.SyntheticResponse(forge.StatusRetryExhaustedOnAction)
				return s.commitResponse(ctx, actionKey, resp)
			}
			return s.actionTimeoutError(nodeKey, actionKey, ta, policy, retryCount, innerErr)
		}

		if timeoutMs != -1 {
			elapsed := time.Since(start).Milliseconds()
			if elapsed+waitMs >= timeoutMs {
				if ta.ContinuationOnTimeout {
					resp := forge.SyntheticResponse(forge.StatusTimeoutOnAction)
					return s.commitResponse(ctx, actionKey, resp)
				}
				return s.actionTimeoutError(nodeKey, actionKey, ta, policy, retryCount, innerErr)
			}
		}

		if err := sleepCancelable(ctx, waitMs); err != nil {
			return err
		}
	}
}

func (s *Session) actionTimeoutError(nodeKey, actionKey string, ta forge.TreeAction, policy *forge.RetryPolicy, retryCount int, cause error) error {
	return forge.NewErrorf(forge.ErrCodeActionTimeout,
		"action %s (%s) on node %s: retries exhausted after %d attempt(s) under policy %s",
		actionKey, ta.ActionName, nodeKey, retryCount, policy.Type).
		WithCause(cause).WithNode(nodeKey).WithAction(actionKey)
}

// isNonRetriable reports the classes of failure the retry controller
// must rethrow immediately rather than retry: cancellation or deadline
// expiry, an action-level timeout already raised by invokeSingleAction,
// and any ForgeError whose code IsRetryable rejects (dynamic-property
// evaluation failures, validation, assertion and the other structural
// codes).
func isNonRetriable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var fe *forge.ForgeError
	if errors.As(err, &fe) {
		if fe.Code == forge.ErrCodeActionTimeout {
			return true
		}
		return !fe.IsRetryable()
	}
	return false
}

func sleepCancelable(ctx context.Context, ms int64) error {
	if ms <= 0 {
		return nil
	}
	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
