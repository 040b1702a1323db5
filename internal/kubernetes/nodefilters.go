package kubernetes

import (
	"sort"

	core "k8s.io/api/core/v1"
)

// NewNodeLabelFilter returns a filter that returns true if the supplied node
// carries all of the supplied labels.
func NewNodeLabelFilter(labels map[string]string) func(n *core.Node) bool {
	return func(n *core.Node) bool {
		for k, v := range labels {
			if n.GetLabels()[k] != v {
				return false
			}
		}
		return true
	}
}

// NodeSchedulableFilter returns true if the supplied node is schedulable.
func NodeSchedulableFilter(n *core.Node) bool {
	return !n.Spec.Unschedulable
}

// UnsatisfiedSelectorKey returns the first selector key, in sorted key order,
// that the node's labels do not satisfy. Sorted order keeps the reported
// reason stable across runs. The bool is false when every key is satisfied.
func UnsatisfiedSelectorKey(selector map[string]string, node *core.Node) (key string, ok bool) {
	keys := make([]string, 0, len(selector))
	for k := range selector {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if node.GetLabels()[k] != selector[k] {
			return k, true
		}
	}
	return "", false
}
