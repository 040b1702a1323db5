// Package capacity reports per-node memory reservation: how much memory the
// scheduler can still promise to new pods on each node.
package capacity

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	core "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"nodeaudit/internal/kubernetes"
)

// Node pod listings run in parallel; the limit keeps the apiserver happy.
const defaultConcurrency = 20

// NodeUsage is the memory accounting for one node.
type NodeUsage struct {
	Node string `json:"node"`
	// Capacity is the node's physical memory.
	Capacity resource.Quantity `json:"capacity"`
	// Allocatable is what the scheduler may hand out (capacity minus system
	// reserves).
	Allocatable resource.Quantity `json:"allocatable"`
	// Requested sums the memory requests of Running and Pending pods
	// assigned to the node.
	Requested resource.Quantity `json:"requested"`
}

// Free returns the memory reserve still available to the scheduler. Never
// negative; overcommitted nodes report zero.
func (u NodeUsage) Free() resource.Quantity {
	free := u.Allocatable.DeepCopy()
	free.Sub(u.Requested)
	if free.Sign() < 0 {
		return *resource.NewQuantity(0, resource.BinarySI)
	}
	return free
}

// UsagePercent returns requested memory as a share of allocatable.
func (u NodeUsage) UsagePercent() float64 {
	alloc := u.Allocatable.AsApproximateFloat64()
	if alloc <= 0 {
		return 0
	}
	return u.Requested.AsApproximateFloat64() / alloc * 100
}

// Collect lists every node, drops those failing any of the supplied filters,
// then lists the pods on each remaining node in parallel and sums memory
// requests per node. Results come back in the original node list order
// regardless of which listing finished first.
func Collect(ctx context.Context, reader kubernetes.SnapshotReader, log *zap.Logger, filters ...func(*core.Node) bool) ([]NodeUsage, error) {
	listed, err := reader.ListNodes(ctx)
	if err != nil {
		return nil, err
	}
	nodes := make([]*core.Node, 0, len(listed))
	for _, n := range listed {
		if passesNodeFilters(n, filters) {
			nodes = append(nodes, n)
		}
	}

	usages := make([]NodeUsage, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultConcurrency)
	for i, node := range nodes {
		i, node := i, node
		g.Go(func() error {
			pods, err := reader.ListPodsOnNode(gctx, node.GetName())
			if err != nil {
				return err
			}
			usages[i] = NodeUsage{
				Node:        node.GetName(),
				Capacity:    node.Status.Capacity[core.ResourceMemory],
				Allocatable: node.Status.Allocatable[core.ResourceMemory],
				Requested:   sumMemoryRequests(pods),
			}
			log.Debug("collected node usage",
				zap.String("node", node.GetName()),
				zap.Int("pods", len(pods)),
				zap.String("requested", usages[i].Requested.String()))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return usages, nil
}

func passesNodeFilters(n *core.Node, filters []func(*core.Node) bool) bool {
	for _, f := range filters {
		if !f(n) {
			return false
		}
	}
	return true
}

// sumMemoryRequests totals the container memory requests of pods that hold a
// reservation on the node. Only Running and Pending pods reserve memory;
// completed pods do not.
func sumMemoryRequests(pods []*core.Pod) resource.Quantity {
	total := *resource.NewQuantity(0, resource.BinarySI)
	for _, p := range pods {
		if p.Status.Phase != core.PodRunning && p.Status.Phase != core.PodPending {
			continue
		}
		for _, c := range p.Spec.Containers {
			if req, ok := c.Resources.Requests[core.ResourceMemory]; ok {
				total.Add(req)
			}
		}
	}
	return total
}
