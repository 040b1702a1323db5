package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	core "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/labels"

	"nodeaudit/internal/kubernetes"
	"nodeaudit/internal/kubernetes/capacity"
)

func (h *CLICommands) buildCapacityCmd() *cobra.Command {
	var unit, selector string
	var schedulableOnly bool

	cmd := &cobra.Command{
		Use:   "capacity",
		Short: "Report per-node memory reservation",
		Long: `Lists every node with its memory capacity, the allocatable share, the
sum of memory requests from Running and Pending pods, and the reserve
the scheduler can still promise to new pods.`,
		Args: cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, args []string) error {
			divisor, unitName, err := memoryUnit(unit)
			if err != nil {
				return err
			}
			filters, err := nodeFilters(selector, schedulableOnly)
			if err != nil {
				return err
			}
			reader, err := h.snapshotReader()
			if err != nil {
				return err
			}

			usages, err := capacity.Collect(cmd.Context(), reader, h.log, filters...)
			if err != nil {
				return err
			}
			h.log.Info("capacity collected", zap.Int("nodes", len(usages)))

			return h.renderCapacity(cmd.OutOrStdout(), usages, divisor, unitName)
		}),
	}

	cmd.Flags().StringVar(&unit, "unit", "GiB", "memory unit for the report (GiB|MiB)")
	cmd.Flags().StringVarP(&selector, "selector", "l", "", "label selector limiting the reported nodes (key=value,...)")
	cmd.Flags().BoolVar(&schedulableOnly, "schedulable-only", false, "skip cordoned nodes")
	return cmd
}

func nodeFilters(selector string, schedulableOnly bool) ([]func(*core.Node) bool, error) {
	var filters []func(*core.Node) bool
	if selector != "" {
		set, err := labels.ConvertSelectorToLabelsMap(selector)
		if err != nil {
			return nil, fmt.Errorf("invalid node selector %q: %v", selector, err)
		}
		filters = append(filters, kubernetes.NewNodeLabelFilter(set))
	}
	if schedulableOnly {
		filters = append(filters, kubernetes.NodeSchedulableFilter)
	}
	return filters, nil
}

func memoryUnit(unit string) (divisor float64, name string, err error) {
	switch unit {
	case "GiB", "Gi":
		return 1 << 30, "GiB", nil
	case "MiB", "Mi":
		return 1 << 20, "MiB", nil
	}
	return 0, "", fmt.Errorf("unknown memory unit %q (want GiB or MiB)", unit)
}

func (h *CLICommands) renderCapacity(out io.Writer, usages []capacity.NodeUsage, divisor float64, unitName string) error {
	if h.outputFormat == FormatJSON {
		b, err := json.MarshalIndent(usages, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
		return nil
	}

	table := newTable(out, []string{
		"NODE",
		"CAPACITY (" + unitName + ")",
		"ALLOCATABLE (" + unitName + ")",
		"REQUESTED (" + unitName + ")",
		"FREE (" + unitName + ")",
		"USAGE",
	})
	for _, u := range usages {
		free := u.Free()
		table.Append([]string{
			u.Node,
			formatQuantity(u.Capacity, divisor),
			formatQuantity(u.Allocatable, divisor),
			formatQuantity(u.Requested, divisor),
			formatQuantity(free, divisor),
			fmt.Sprintf("%.1f%%", u.UsagePercent()),
		})
	}
	table.Render()
	fmt.Fprintf(out, "\n%d node(s) reported\n", len(usages))
	return nil
}

func formatQuantity(q resource.Quantity, divisor float64) string {
	return fmt.Sprintf("%.2f", q.AsApproximateFloat64()/divisor)
}
