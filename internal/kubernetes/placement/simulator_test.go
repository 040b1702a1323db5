package placement

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	core "k8s.io/api/core/v1"
	meta "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func node(name string, labels map[string]string, taints ...core.Taint) *core.Node {
	return &core.Node{
		ObjectMeta: meta.ObjectMeta{Name: name, Labels: labels},
		Spec:       core.NodeSpec{Taints: taints},
	}
}

func TestEvaluate(t *testing.T) {
	gpuTaint := core.Taint{Key: "dedicated", Value: "gpu", Effect: core.TaintEffectNoSchedule}

	cases := []struct {
		name     string
		spec     Spec
		nodes    []*core.Node
		eligible []bool
		reasons  []string
	}{
		{
			name: "SelectorSplitsNodes",
			spec: Spec{NodeSelector: map[string]string{"zone": "east"}},
			nodes: []*core.Node{
				node("a", map[string]string{"zone": "east"}),
				node("b", map[string]string{"zone": "west"}),
			},
			eligible: []bool{true, false},
			reasons: []string{
				ReasonEligible,
				`node selector zone=east not satisfied (node has "west")`,
			},
		},
		{
			name: "TolerationCoversTaint",
			spec: Spec{Tolerations: []core.Toleration{{Key: "dedicated", Value: "gpu", Effect: core.TaintEffectNoSchedule}}},
			nodes: []*core.Node{
				node("c", nil, gpuTaint),
			},
			eligible: []bool{true},
			reasons:  []string{ReasonEligible},
		},
		{
			name: "NoTolerationsRejectsTaintedNode",
			spec: Spec{},
			nodes: []*core.Node{
				node("c", nil, gpuTaint),
			},
			eligible: []bool{false},
			reasons:  []string{"taint dedicated=gpu:NoSchedule is not tolerated"},
		},
		{
			name: "EmptySelectorPassesAllNodes",
			spec: Spec{},
			nodes: []*core.Node{
				node("a", nil),
				node("b", map[string]string{"zone": "west"}),
			},
			eligible: []bool{true, true},
			reasons:  []string{ReasonEligible, ReasonEligible},
		},
		{
			name: "AbsentLabelReported",
			spec: Spec{NodeSelector: map[string]string{"zone": "east"}},
			nodes: []*core.Node{
				node("a", nil),
			},
			eligible: []bool{false},
			reasons:  []string{"node selector zone=east not satisfied (label absent)"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdicts := Evaluate(tc.spec, tc.nodes)
			require.Len(t, verdicts, len(tc.nodes))
			for i, v := range verdicts {
				assert.Equal(t, tc.nodes[i].GetName(), v.Node, "input order must be preserved")
				assert.Equal(t, tc.eligible[i], v.Eligible)
				assert.Equal(t, tc.reasons[i], v.Reason)
			}
		})
	}
}

// A node failing the selector check never has its taints evaluated; the
// reason must cite the selector, not the taint.
func TestEvaluateSelectorShortCircuitsTaints(t *testing.T) {
	n := node("a", map[string]string{"zone": "west"},
		core.Taint{Key: "dedicated", Value: "gpu", Effect: core.TaintEffectNoSchedule})
	spec := Spec{NodeSelector: map[string]string{"zone": "east"}}

	verdicts := Evaluate(spec, []*core.Node{n})
	require.Len(t, verdicts, 1)
	v := verdicts[0]
	assert.False(t, v.SelectorOK)
	assert.False(t, v.TaintOK)
	assert.False(t, v.Eligible)
	assert.Contains(t, v.Reason, "node selector")
	assert.NotContains(t, v.Reason, "taint")
}

// A node satisfying a selector also satisfies every subset of it.
func TestEvaluateSelectorMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for run := 0; run < 50; run++ {
		labels := map[string]string{}
		for i := 0; i < 2+rng.Intn(5); i++ {
			labels[fmt.Sprintf("k%d", i)] = fmt.Sprintf("v%d", rng.Intn(3))
		}
		n := node("a", labels)

		// any subset of the node's own labels must be satisfied
		subset := map[string]string{}
		for k, v := range labels {
			if rng.Intn(2) == 0 {
				subset[k] = v
			}
		}

		verdicts := Evaluate(Spec{NodeSelector: subset}, []*core.Node{n})
		require.Len(t, verdicts, 1)
		assert.True(t, verdicts[0].Eligible, "subset selector %v rejected node labels %v", subset, labels)
	}
}

func TestEvaluateIdempotence(t *testing.T) {
	nodes := []*core.Node{
		node("a", map[string]string{"zone": "east"}),
		node("b", map[string]string{"zone": "west"}),
		node("c", nil, core.Taint{Key: "dedicated", Value: "gpu", Effect: core.TaintEffectNoSchedule}),
	}
	spec := Spec{NodeSelector: map[string]string{"zone": "east"}}

	first := Evaluate(spec, nodes)
	second := Evaluate(spec, nodes)
	assert.Equal(t, first, second)
}

func TestSpecFromPod(t *testing.T) {
	pod := &core.Pod{
		Spec: core.PodSpec{
			NodeSelector: map[string]string{"zone": "east"},
			Tolerations:  []core.Toleration{{Key: "dedicated", Value: "gpu", Effect: core.TaintEffectNoSchedule}},
		},
	}
	spec := SpecFromPod(pod)
	assert.Equal(t, pod.Spec.NodeSelector, spec.NodeSelector)
	assert.Equal(t, pod.Spec.Tolerations, spec.Tolerations)
}
