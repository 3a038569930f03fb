// Package reconcile decides how poll results, stream events and detail
// fetches may change the selected task's detail record.
package reconcile

import (
	"github.com/testops/taskwatch/internal/task"
)

// MergeDetail overlays update onto prior. Scalar and status fields come from
// update; tests and metrics are taken from update only when it carries a
// non-empty collection, so a merge never loses detail that prior had.
func MergeDetail(prior *task.Task, update task.Task) task.Task {
	out := update.Clone()
	if prior == nil || prior.RequestID != update.RequestID {
		return out
	}
	if len(out.Tests) == 0 && len(prior.Tests) > 0 {
		out.Tests = prior.Clone().Tests
	}
	if len(out.Metrics) == 0 && len(prior.Metrics) > 0 {
		out.Metrics = append([]task.AgentMetric(nil), prior.Metrics...)
	}
	return out
}
