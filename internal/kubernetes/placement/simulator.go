// Package placement predicts on which nodes a workload could run, using the
// same checks a scheduler applies first: node-selector labels and taint
// tolerance. It deliberately stops there; resource fit and affinity are not
// emulated.
package placement

import (
	"fmt"

	core "k8s.io/api/core/v1"

	"nodeaudit/internal/kubernetes"
)

// ReasonEligible is reported for nodes that pass every check.
const ReasonEligible = "requirements satisfied"

// Spec is a workload's placement constraints, read once per evaluation run.
type Spec struct {
	// NodeSelector maps label keys to the values a node must carry. All
	// entries must match.
	NodeSelector map[string]string `json:"nodeSelector,omitempty"`
	// Tolerations declare which taints the workload accepts.
	Tolerations []core.Toleration `json:"tolerations,omitempty"`
}

// SpecFromPod extracts the placement constraints of an existing pod.
func SpecFromPod(p *core.Pod) Spec {
	return Spec{
		NodeSelector: p.Spec.NodeSelector,
		Tolerations:  p.Spec.Tolerations,
	}
}

// NodeVerdict is the outcome of evaluating one node.
type NodeVerdict struct {
	Node       string `json:"node"`
	SelectorOK bool   `json:"selectorOK"`
	// TaintOK is meaningful only when SelectorOK is true; a node rejected on
	// its labels never has its taints evaluated.
	TaintOK  bool   `json:"taintOK"`
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason"`
}

// Evaluate checks every node against the workload's constraints and returns
// one verdict per node, in input order. The checks run cheapest first and
// stop at the first failure, so the reason always names the first unmet
// requirement.
func Evaluate(spec Spec, nodes []*core.Node) []NodeVerdict {
	verdicts := make([]NodeVerdict, 0, len(nodes))
	for _, n := range nodes {
		verdicts = append(verdicts, evaluateNode(spec, n))
	}
	return verdicts
}

func evaluateNode(spec Spec, node *core.Node) NodeVerdict {
	v := NodeVerdict{Node: node.GetName()}

	if key, unmet := kubernetes.UnsatisfiedSelectorKey(spec.NodeSelector, node); unmet {
		got := node.GetLabels()[key]
		if got == "" {
			v.Reason = fmt.Sprintf("node selector %s=%s not satisfied (label absent)", key, spec.NodeSelector[key])
		} else {
			v.Reason = fmt.Sprintf("node selector %s=%s not satisfied (node has %q)", key, spec.NodeSelector[key], got)
		}
		return v
	}
	v.SelectorOK = true

	if taint, uncovered := kubernetes.UncoveredTaint(spec.Tolerations, node.Spec.Taints); uncovered {
		v.Reason = fmt.Sprintf("taint %s is not tolerated", kubernetes.TaintString(taint))
		return v
	}
	v.TaintOK = true
	v.Eligible = true
	v.Reason = ReasonEligible
	return v
}
