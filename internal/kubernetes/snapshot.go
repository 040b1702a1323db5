package kubernetes

import (
	"context"

	"github.com/pkg/errors"
	core "k8s.io/api/core/v1"
	policy "k8s.io/api/policy/v1"
	meta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/client-go/kubernetes"
)

type errSnapshotUnavailable struct{ error }

func (e errSnapshotUnavailable) SnapshotUnavailable() {}

// IsSnapshotUnavailable returns true if the supplied error was caused by a
// failure to read cluster state (unreachable apiserver, auth failure,
// missing object). Such errors are fatal to the run that hit them.
func IsSnapshotUnavailable(err error) bool {
	err = errors.Cause(err)
	_, ok := err.(interface {
		SnapshotUnavailable()
	})
	return ok
}

// A SnapshotReader exposes read-only accessors over cluster state. All
// methods return objects in apiserver list order; callers rely on that
// order being preserved through evaluation and rendering.
type SnapshotReader interface {
	// ListNodes returns all nodes in the cluster.
	ListNodes(ctx context.Context) ([]*core.Node, error)
	// ListPodsOnNode returns the pods assigned to the named node.
	ListPodsOnNode(ctx context.Context, nodeName string) ([]*core.Pod, error)
	// ListPDBs returns the pod disruption budgets in the supplied namespace,
	// or in all namespaces when namespace is empty.
	ListPDBs(ctx context.Context, namespace string) ([]*policy.PodDisruptionBudget, error)
	// GetPod returns a single pod by namespace and name.
	GetPod(ctx context.Context, namespace, name string) (*core.Pod, error)
}

// APISnapshotReader reads cluster state through the Kubernetes API. It never
// mutates anything.
type APISnapshotReader struct {
	c kubernetes.Interface
}

// NewAPISnapshotReader returns a SnapshotReader backed by the supplied client.
func NewAPISnapshotReader(c kubernetes.Interface) *APISnapshotReader {
	return &APISnapshotReader{c: c}
}

func (r *APISnapshotReader) ListNodes(ctx context.Context) ([]*core.Node, error) {
	l, err := r.c.CoreV1().Nodes().List(ctx, meta.ListOptions{})
	if err != nil {
		return nil, errSnapshotUnavailable{errors.Wrap(err, "cannot list nodes")}
	}
	nodes := make([]*core.Node, 0, len(l.Items))
	for i := range l.Items {
		nodes = append(nodes, &l.Items[i])
	}
	return nodes, nil
}

func (r *APISnapshotReader) ListPodsOnNode(ctx context.Context, nodeName string) ([]*core.Pod, error) {
	l, err := r.c.CoreV1().Pods(meta.NamespaceAll).List(ctx, meta.ListOptions{
		FieldSelector: fields.SelectorFromSet(fields.Set{"spec.nodeName": nodeName}).String(),
	})
	if err != nil {
		return nil, errSnapshotUnavailable{errors.Wrapf(err, "cannot list pods on node %s", nodeName)}
	}
	return podPointers(l), nil
}

func (r *APISnapshotReader) ListPDBs(ctx context.Context, namespace string) ([]*policy.PodDisruptionBudget, error) {
	l, err := r.c.PolicyV1().PodDisruptionBudgets(namespace).List(ctx, meta.ListOptions{})
	if err != nil {
		return nil, errSnapshotUnavailable{errors.Wrap(err, "cannot list pod disruption budgets")}
	}
	pdbs := make([]*policy.PodDisruptionBudget, 0, len(l.Items))
	for i := range l.Items {
		pdbs = append(pdbs, &l.Items[i])
	}
	return pdbs, nil
}

func (r *APISnapshotReader) GetPod(ctx context.Context, namespace, name string) (*core.Pod, error) {
	p, err := r.c.CoreV1().Pods(namespace).Get(ctx, name, meta.GetOptions{})
	if err != nil {
		return nil, errSnapshotUnavailable{errors.Wrapf(err, "cannot get pod %s/%s", namespace, name)}
	}
	return p, nil
}

func podPointers(l *core.PodList) []*core.Pod {
	pods := make([]*core.Pod, 0, len(l.Items))
	for i := range l.Items {
		pods = append(pods, &l.Items[i])
	}
	return pods
}
