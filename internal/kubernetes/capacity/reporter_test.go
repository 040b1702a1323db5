package capacity

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	core "k8s.io/api/core/v1"
	policy "k8s.io/api/policy/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	meta "k8s.io/apimachinery/pkg/apis/meta/v1"

	"nodeaudit/internal/kubernetes"
)

// fakeReader serves canned per-node pod listings.
type fakeReader struct {
	nodes      []*core.Node
	podsByNode map[string][]*core.Pod
	nodesErr   error
	podsErr    error
}

func (f *fakeReader) ListNodes(context.Context) ([]*core.Node, error) {
	return f.nodes, f.nodesErr
}

func (f *fakeReader) ListPodsOnNode(_ context.Context, nodeName string) ([]*core.Pod, error) {
	if f.podsErr != nil {
		return nil, f.podsErr
	}
	return f.podsByNode[nodeName], nil
}

func (f *fakeReader) ListPDBs(context.Context, string) ([]*policy.PodDisruptionBudget, error) {
	return nil, nil
}

func (f *fakeReader) GetPod(context.Context, string, string) (*core.Pod, error) {
	return nil, nil
}

func memNode(name, capacity, allocatable string) *core.Node {
	return &core.Node{
		ObjectMeta: meta.ObjectMeta{Name: name},
		Status: core.NodeStatus{
			Capacity:    core.ResourceList{core.ResourceMemory: resource.MustParse(capacity)},
			Allocatable: core.ResourceList{core.ResourceMemory: resource.MustParse(allocatable)},
		},
	}
}

func memPod(name, request string, phase core.PodPhase) *core.Pod {
	p := &core.Pod{
		ObjectMeta: meta.ObjectMeta{Name: name, Namespace: "default"},
		Status:     core.PodStatus{Phase: phase},
	}
	if request != "" {
		p.Spec.Containers = []core.Container{{
			Name: "main",
			Resources: core.ResourceRequirements{
				Requests: core.ResourceList{core.ResourceMemory: resource.MustParse(request)},
			},
		}}
	}
	return p
}

func TestCollect(t *testing.T) {
	reader := &fakeReader{
		nodes: []*core.Node{
			memNode("a", "16Gi", "15Gi"),
			memNode("b", "8Gi", "7Gi"),
			memNode("c", "8Gi", "7Gi"),
		},
		podsByNode: map[string][]*core.Pod{
			"a": {
				memPod("web-1", "2Gi", core.PodRunning),
				memPod("web-2", "1Gi", core.PodPending),
				memPod("job-1", "4Gi", core.PodSucceeded),
			},
			"b": {
				memPod("norequest", "", core.PodRunning),
			},
		},
	}

	usages, err := Collect(context.Background(), reader, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, usages, 3)

	assert.Equal(t, []string{"a", "b", "c"}, []string{usages[0].Node, usages[1].Node, usages[2].Node},
		"usages must follow node list order")

	// only Running and Pending pods reserve memory
	assert.Zero(t, usages[0].Requested.Cmp(resource.MustParse("3Gi")))
	assert.Zero(t, usages[1].Requested.Cmp(resource.MustParse("0")))
	assert.Zero(t, usages[2].Requested.Cmp(resource.MustParse("0")))

	assert.Zero(t, usages[0].Capacity.Cmp(resource.MustParse("16Gi")))
	assert.Zero(t, usages[0].Allocatable.Cmp(resource.MustParse("15Gi")))
}

func TestCollectNodeFilters(t *testing.T) {
	east := memNode("east-1", "8Gi", "7Gi")
	east.ObjectMeta.Labels = map[string]string{"zone": "east"}
	cordoned := memNode("east-2", "8Gi", "7Gi")
	cordoned.ObjectMeta.Labels = map[string]string{"zone": "east"}
	cordoned.Spec.Unschedulable = true
	west := memNode("west-1", "8Gi", "7Gi")
	west.ObjectMeta.Labels = map[string]string{"zone": "west"}

	reader := &fakeReader{nodes: []*core.Node{east, cordoned, west}}

	usages, err := Collect(context.Background(), reader, zap.NewNop(),
		kubernetes.NewNodeLabelFilter(map[string]string{"zone": "east"}),
		kubernetes.NodeSchedulableFilter,
	)
	require.NoError(t, err)
	require.Len(t, usages, 1)
	assert.Equal(t, "east-1", usages[0].Node)
}

func TestCollectErrors(t *testing.T) {
	t.Run("NodeListFailure", func(t *testing.T) {
		reader := &fakeReader{nodesErr: errors.New("boom")}
		_, err := Collect(context.Background(), reader, zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("PodListFailure", func(t *testing.T) {
		reader := &fakeReader{
			nodes:   []*core.Node{memNode("a", "8Gi", "7Gi")},
			podsErr: errors.New("boom"),
		}
		_, err := Collect(context.Background(), reader, zap.NewNop())
		assert.Error(t, err)
	})
}

func TestNodeUsageFree(t *testing.T) {
	cases := []struct {
		name        string
		allocatable string
		requested   string
		want        string
	}{
		{name: "Headroom", allocatable: "8Gi", requested: "3Gi", want: "5Gi"},
		{name: "Exhausted", allocatable: "8Gi", requested: "8Gi", want: "0"},
		{name: "OvercommittedClampsToZero", allocatable: "8Gi", requested: "10Gi", want: "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := NodeUsage{
				Allocatable: resource.MustParse(tc.allocatable),
				Requested:   resource.MustParse(tc.requested),
			}
			free := u.Free()
			assert.Zero(t, free.Cmp(resource.MustParse(tc.want)))
		})
	}
}

func TestNodeUsagePercent(t *testing.T) {
	u := NodeUsage{
		Allocatable: resource.MustParse("10Gi"),
		Requested:   resource.MustParse("5Gi"),
	}
	assert.InDelta(t, 50.0, u.UsagePercent(), 0.01)

	empty := NodeUsage{Requested: resource.MustParse("5Gi")}
	assert.Zero(t, empty.UsagePercent())
}
