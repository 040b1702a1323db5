package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nodeaudit/internal/kubernetes/drain"
)

func (h *CLICommands) buildDrainCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "drain <node-name>",
		Short: "Predict whether draining a node would be blocked",
		Long: `Simulates a drain of the named node without evicting anything.

Every resident pod is matched against the cluster's pod disruption
budgets; a budget that currently allows zero disruptions marks the pod
as a hard blocker. Pods with ephemeral local storage or without a
managing controller raise warnings: draining them needs forced-eviction
flags. DaemonSet pods are ignored, the way kubectl drain ignores them.`,
		Args: cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, args []string) error {
			nodeName := args[0]
			reader, err := h.snapshotReader()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			pods, err := reader.ListPodsOnNode(ctx, nodeName)
			if err != nil {
				return err
			}
			pdbs, err := reader.ListPDBs(ctx, "")
			if err != nil {
				return err
			}

			report, err := drain.Evaluate(nodeName, pods, pdbs)
			if err != nil {
				return err
			}
			h.log.Info("drain simulated",
				zap.String("node", nodeName),
				zap.String("status", string(report.Status)),
				zap.Int("blockers", report.BlockerCount),
				zap.Int("warnings", report.WarningCount))

			if err := h.renderDrain(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if strict && report.Status != drain.StatusReady {
				return errors.Errorf("node %s is not ready to drain: %s", nodeName, report.Status)
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when the verdict is not READY")
	return cmd
}

func (h *CLICommands) renderDrain(out io.Writer, report drain.Report) error {
	if h.outputFormat == FormatJSON {
		b, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
		return nil
	}

	table := newTable(out, []string{"POD", "NAMESPACE", "OWNER", "PDB", "WARNINGS"})
	for _, v := range report.Pods {
		warnings := "-"
		if len(v.Warnings) > 0 {
			warnings = strings.Join(v.Warnings, "; ")
		}
		table.Append([]string{
			v.Name,
			v.Namespace,
			string(v.Owner),
			v.Reason,
			warnings,
		})
	}
	table.Render()
	fmt.Fprintf(out, "\n%s: %s\n", report.Status, report.Summary())
	return nil
}
