// Package drain predicts whether evicting the pods of a node would be blocked
// before anyone runs the actual drain. It is a read-only simulation: the
// eviction API is never called.
package drain

import (
	"fmt"
	"strings"

	core "k8s.io/api/core/v1"
	policy "k8s.io/api/policy/v1"

	"nodeaudit/internal/kubernetes"
)

// Status is the aggregate drain verdict for a node.
type Status string

const (
	// StatusReady means every resident pod can be evicted as-is.
	StatusReady Status = "READY"
	// StatusNeedsFlags means no budget blocks the drain but some pods need
	// forced-eviction flags (local storage deletion, unmanaged pod removal).
	StatusNeedsFlags Status = "NEEDS-FLAGS"
	// StatusCritical means at least one disruption budget refuses eviction;
	// the drain will be refused without manual intervention.
	StatusCritical Status = "CRITICAL"
)

// Warning flags raised per pod, independently of budget gating.
const (
	WarnLocalStorage = "ephemeral local storage (data deleted on eviction)"
	WarnUnmanaged    = "unmanaged pod (needs forced removal)"
)

// PodVerdict is the outcome of evaluating one resident pod.
type PodVerdict struct {
	Name      string               `json:"name"`
	Namespace string               `json:"namespace"`
	Owner     kubernetes.OwnerKind `json:"owner"`
	// MatchedPDBs names every budget applying to the pod. More than one
	// entry is itself a configuration smell surfaced in Reason.
	MatchedPDBs []string `json:"matchedPDBs,omitempty"`
	// Blockers names the matching budgets that currently allow zero
	// disruptions. If any matching budget disallows, the pod blocks; this is
	// the conservative reading of an ambiguous multi-budget match.
	Blockers []string `json:"blockers,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Reason   string   `json:"reason"`
}

// Blocked returns true if a budget refuses eviction of this pod.
func (v PodVerdict) Blocked() bool { return len(v.Blockers) > 0 }

// Report aggregates the per-pod verdicts for one node.
type Report struct {
	Node         string       `json:"node"`
	Pods         []PodVerdict `json:"pods"`
	BlockerCount int          `json:"blockerCount"`
	WarningCount int          `json:"warningCount"`
	Status       Status       `json:"status"`
}

// Summary is a one-line explanation of the aggregate status.
func (r Report) Summary() string {
	switch r.Status {
	case StatusCritical:
		return fmt.Sprintf("drain will be refused without manual intervention (%d blocking pod(s), %d warning(s))", r.BlockerCount, r.WarningCount)
	case StatusNeedsFlags:
		return fmt.Sprintf("drain requires forced-eviction flags but no hard block exists (%d warning(s))", r.WarningCount)
	}
	return "node can be drained"
}

// evictablePodFilter passes the pods a drain would actually evict. Mirror
// pods live in a manifest on the node and cannot be evicted through the API;
// DaemonSet pods are recreated in place. Neither counts as a blocker or a
// warning, the way kubectl drain skips them.
var evictablePodFilter = kubernetes.NewPodFilters(
	kubernetes.MirrorPodFilter,
	kubernetes.DaemonSetPodFilter,
)

// Evaluate simulates a drain of the named node. The supplied pods are the
// node's residents in snapshot order; pdbs is the budget list the pods are
// matched against.
func Evaluate(nodeName string, pods []*core.Pod, pdbs []*policy.PodDisruptionBudget) (Report, error) {
	report := Report{Node: nodeName, Status: StatusReady}

	for _, pod := range pods {
		evictable, err := evictablePodFilter(*pod)
		if err != nil {
			return Report{}, err
		}
		if !evictable {
			continue
		}
		v := evaluatePod(pod, kubernetes.PodOwnerKind(pod), pdbs)
		report.BlockerCount += len(v.Blockers)
		report.WarningCount += len(v.Warnings)
		report.Pods = append(report.Pods, v)
	}

	switch {
	case report.BlockerCount > 0:
		report.Status = StatusCritical
	case report.WarningCount > 0:
		report.Status = StatusNeedsFlags
	}
	return report, nil
}

func evaluatePod(pod *core.Pod, owner kubernetes.OwnerKind, pdbs []*policy.PodDisruptionBudget) PodVerdict {
	v := PodVerdict{
		Name:      pod.GetName(),
		Namespace: pod.GetNamespace(),
		Owner:     owner,
	}

	for _, pdb := range kubernetes.PDBsForPod(pdbs, pod) {
		v.MatchedPDBs = append(v.MatchedPDBs, pdb.GetName())
		if pdb.Status.DisruptionsAllowed == 0 {
			v.Blockers = append(v.Blockers, pdb.GetName())
		}
	}

	if kubernetes.HasLocalStorage(*pod) {
		v.Warnings = append(v.Warnings, WarnLocalStorage)
	}
	if owner == kubernetes.OwnerNone {
		v.Warnings = append(v.Warnings, WarnUnmanaged)
	}

	v.Reason = podReason(v)
	return v
}

func podReason(v PodVerdict) string {
	switch {
	case len(v.Blockers) > 0:
		reason := fmt.Sprintf("PDB %s allows no disruptions", strings.Join(v.Blockers, ", "))
		if len(v.MatchedPDBs) > 1 {
			reason += fmt.Sprintf(" (%d PDBs match this pod)", len(v.MatchedPDBs))
		}
		return reason
	case len(v.MatchedPDBs) > 1:
		return fmt.Sprintf("%d PDBs match this pod, all with remaining budget", len(v.MatchedPDBs))
	case len(v.MatchedPDBs) == 1:
		return fmt.Sprintf("PDB %s has remaining budget", v.MatchedPDBs[0])
	}
	return "no PDB constrains this pod"
}
