package kubernetes

import (
	core "k8s.io/api/core/v1"
)

// TolerationCovers returns true if the supplied toleration covers the
// supplied taint: keys are equal, values are equal or the taint carries no
// value, and effects are equal or the toleration's effect is empty (which
// tolerates every effect for that key/value).
//
// An empty toleration value is a literal empty string. It matches a taint
// whose own value is empty or absent, never a taint with a concrete value.
// A taint or toleration without a key is malformed and never matches.
func TolerationCovers(t core.Toleration, taint core.Taint) bool {
	if t.Key == "" || taint.Key == "" {
		return false
	}
	if t.Key != taint.Key {
		return false
	}
	if taint.Value != "" && t.Value != taint.Value {
		return false
	}
	return t.Effect == "" || t.Effect == taint.Effect
}

// UncoveredTaint returns the first taint on the node that none of the
// supplied tolerations covers, in the node's taint order. The second return
// is false when every taint is covered.
func UncoveredTaint(tolerations []core.Toleration, taints []core.Taint) (core.Taint, bool) {
	for _, taint := range taints {
		covered := false
		for _, t := range tolerations {
			if TolerationCovers(t, taint) {
				covered = true
				break
			}
		}
		if !covered {
			return taint, true
		}
	}
	return core.Taint{}, false
}

// TaintString renders a taint the way kubectl prints them, key=value:effect,
// omitting the value segment when absent.
func TaintString(t core.Taint) string {
	s := t.Key
	if t.Value != "" {
		s += "=" + t.Value
	}
	if t.Effect != "" {
		s += ":" + string(t.Effect)
	}
	return s
}
