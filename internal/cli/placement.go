package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nodeaudit/internal/kubernetes/placement"
)

func (h *CLICommands) buildPlacementCmd() *cobra.Command {
	var podName, namespace string

	cmd := &cobra.Command{
		Use:   "placement --pod <name> --namespace <ns>",
		Short: "Predict which nodes could host a pod",
		Long: `Evaluates the named pod's node selector and tolerations against every
node in the cluster and reports, per node, whether the pod could be
placed there and why not otherwise.

Only label matching and taint tolerance are checked. Resource fit,
affinity rules, and co-scheduling are not emulated; an eligible node
may still refuse the pod for those reasons.`,
		Args: cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, args []string) error {
			reader, err := h.snapshotReader()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			pod, err := reader.GetPod(ctx, namespace, podName)
			if err != nil {
				return err
			}
			nodes, err := reader.ListNodes(ctx)
			if err != nil {
				return err
			}

			spec := placement.SpecFromPod(pod)
			verdicts := placement.Evaluate(spec, nodes)
			h.log.Info("placement evaluated",
				zap.String("pod", namespace+"/"+podName),
				zap.Int("nodes", len(verdicts)))

			return h.renderPlacement(cmd.OutOrStdout(), verdicts)
		}),
	}

	cmd.Flags().StringVar(&podName, "pod", "", "name of the pod whose placement spec is evaluated")
	cmd.Flags().StringVar(&namespace, "namespace", "", "namespace of the pod")
	_ = cmd.MarkFlagRequired("pod")
	_ = cmd.MarkFlagRequired("namespace")
	return cmd
}

func (h *CLICommands) renderPlacement(out io.Writer, verdicts []placement.NodeVerdict) error {
	if h.outputFormat == FormatJSON {
		b, err := json.MarshalIndent(verdicts, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
		return nil
	}

	table := newTable(out, []string{"NODE", "SELECTOR", "TAINTS", "ELIGIBLE", "REASON"})
	eligible := 0
	for _, v := range verdicts {
		taintCell := yesNo(v.TaintOK, "ok", "fail")
		if !v.SelectorOK {
			// selector rejection short-circuits; taints were not evaluated
			taintCell = "-"
		}
		table.Append([]string{
			v.Node,
			yesNo(v.SelectorOK, "ok", "fail"),
			taintCell,
			yesNo(v.Eligible, "yes", "no"),
			v.Reason,
		})
		if v.Eligible {
			eligible++
		}
	}
	table.Render()
	fmt.Fprintf(out, "\n%d of %d node(s) eligible\n", eligible, len(verdicts))
	return nil
}

func yesNo(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}
