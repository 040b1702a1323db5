package kubernetes

import (
	core "k8s.io/api/core/v1"
	policy "k8s.io/api/policy/v1"
	meta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
)

// PDBMatchesPod returns true if the budget applies to the pod: same
// namespace, and every label the budget selects for is present on the pod
// with an equal value. Extra pod labels do not disqualify a match. An
// explicit empty selector selects every pod in the namespace, the policy/v1
// reading; a nil or unparseable selector matches nothing.
func PDBMatchesPod(pdb *policy.PodDisruptionBudget, pod *core.Pod) bool {
	if pdb.GetNamespace() != pod.GetNamespace() {
		return false
	}
	selector, err := meta.LabelSelectorAsSelector(pdb.Spec.Selector)
	if err != nil {
		return false
	}
	return selector.Matches(labels.Set(pod.GetLabels()))
}

// PDBsForPod filters the supplied budgets to those applying to the pod,
// preserving input order.
func PDBsForPod(pdbs []*policy.PodDisruptionBudget, pod *core.Pod) []*policy.PodDisruptionBudget {
	var matched []*policy.PodDisruptionBudget
	for _, pdb := range pdbs {
		if PDBMatchesPod(pdb, pod) {
			matched = append(matched, pdb)
		}
	}
	return matched
}
