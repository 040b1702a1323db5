package kubernetes

import (
	"github.com/pkg/errors"
	core "k8s.io/api/core/v1"
	meta "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// OwnerKind is the controller type responsible for recreating a pod if it is
// deleted.
type OwnerKind string

const (
	OwnerDaemonSet   OwnerKind = "DaemonSet"
	OwnerReplicaSet  OwnerKind = "ReplicaSet"
	OwnerStatefulSet OwnerKind = "StatefulSet"
	OwnerJob         OwnerKind = "Job"
	// OwnerNone marks an unmanaged pod, one with no controller owner.
	OwnerNone OwnerKind = "None"
	// OwnerOther covers controller kinds we do not classify further.
	OwnerOther OwnerKind = "Other"
)

// PodOwnerKind classifies the pod by its controller owner reference. No API
// call is made; an owner that no longer exists still counts.
func PodOwnerKind(p *core.Pod) OwnerKind {
	c := meta.GetControllerOf(p)
	if c == nil {
		return OwnerNone
	}
	switch OwnerKind(c.Kind) {
	case OwnerDaemonSet, OwnerReplicaSet, OwnerStatefulSet, OwnerJob:
		return OwnerKind(c.Kind)
	}
	return OwnerOther
}

// A PodFilterFunc returns true if the supplied pod passes the filter.
type PodFilterFunc func(p core.Pod) (bool, error)

// MirrorPodFilter returns true if the supplied pod is not a mirror pod, i.e. a
// pod created by a manifest on the node rather than the API server.
func MirrorPodFilter(p core.Pod) (bool, error) {
	_, mirrorPod := p.GetAnnotations()[core.MirrorPodAnnotationKey]
	return !mirrorPod, nil
}

// HasLocalStorage returns true if the pod declares at least one EmptyDir
// volume. Evicting such a pod deletes the volume's data.
func HasLocalStorage(p core.Pod) bool {
	for _, v := range p.Spec.Volumes {
		if v.EmptyDir != nil {
			return true
		}
	}
	return false
}

// DaemonSetPodFilter returns true if the supplied pod is not managed by a
// DaemonSet. Daemon pods are recreated on their node no matter what, so they
// are never drain blockers.
func DaemonSetPodFilter(p core.Pod) (bool, error) {
	return PodOwnerKind(&p) != OwnerDaemonSet, nil
}

// NewPodFilters returns a PodFilterFunc that returns true if all of the
// supplied PodFilterFuncs return true.
func NewPodFilters(filters ...PodFilterFunc) PodFilterFunc {
	return func(p core.Pod) (bool, error) {
		for _, fn := range filters {
			passes, err := fn(p)
			if err != nil {
				return false, errors.Wrap(err, "cannot apply filters")
			}
			if !passes {
				return false, nil
			}
		}
		return true, nil
	}
}
