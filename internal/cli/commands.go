// Package cli wires the audit commands: flag parsing, snapshot access, and
// report rendering.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	client "k8s.io/client-go/kubernetes"

	"nodeaudit/internal/kubernetes"
	nodeauditklog "nodeaudit/internal/kubernetes/klog"
)

// CLICommands holds the flag state shared by the audit subcommands.
type CLICommands struct {
	// Reader, when set, replaces the API-backed snapshot reader. Tests use
	// this to run commands against fake clusters.
	Reader kubernetes.SnapshotReader

	kubeconfig    string
	apiserver     string
	outputFormat  OutputFormatType
	debug         bool
	klogVerbosity int32

	log *zap.Logger
}

// SetGlobalFlags registers the flags every subcommand shares.
func (h *CLICommands) SetGlobalFlags(f *pflag.FlagSet) {
	f.StringVar(&h.kubeconfig, "kubeconfig", "", "path to a kubeconfig file (default: in-cluster config)")
	f.StringVar(&h.apiserver, "master", "", "address of the Kubernetes API server (overrides kubeconfig)")
	f.VarP(&h.outputFormat, "output", "o", "output format (table|json)")
	f.BoolVar(&h.debug, "debug", false, "enable debug logging")
	f.Int32Var(&h.klogVerbosity, "klog-verbosity", 0, "verbosity of the Kubernetes client machinery logs")
}

// Setup builds the logger. Called once before any subcommand runs.
func (h *CLICommands) Setup() error {
	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.OutputPaths = []string{"stderr"}
	zlog, err := zapConfig.Build()
	if err != nil {
		return err
	}
	if h.debug {
		if zlog, err = zap.NewDevelopment(); err != nil {
			return err
		}
	}
	nodeauditklog.InitializeKlog(h.klogVerbosity)
	nodeauditklog.RedirectToLogger(zlog)
	h.log = zlog
	return nil
}

// Commands returns the audit subcommands.
func (h *CLICommands) Commands() []*cobra.Command {
	return []*cobra.Command{h.buildPlacementCmd(), h.buildDrainCmd(), h.buildCapacityCmd()}
}

func (h *CLICommands) snapshotReader() (kubernetes.SnapshotReader, error) {
	if h.Reader != nil {
		return h.Reader, nil
	}
	config, err := kubernetes.BuildConfigFromFlags(h.apiserver, h.kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("cannot build Kubernetes client configuration: %v", err)
	}
	cs, err := client.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("cannot create Kubernetes client: %v", err)
	}
	return kubernetes.NewAPISnapshotReader(cs), nil
}

// runError marks failures raised after flag and argument validation passed.
type runError struct{ error }

// run wraps a RunE so usage is only printed for flag and argument mistakes,
// and so Execute can tell input errors from runtime failures.
func run(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if err := fn(cmd, args); err != nil {
			return runError{err}
		}
		return nil
	}
}

// NewRootCommand assembles the nodeaudit command tree.
func NewRootCommand() *cobra.Command {
	handlers := &CLICommands{}
	root := &cobra.Command{
		Use:   "nodeaudit",
		Short: "nodeaudit predicts scheduling eligibility and drain safety for cluster nodes",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := handlers.Setup(); err != nil {
				return runError{err}
			}
			return nil
		},
	}
	handlers.SetGlobalFlags(root.PersistentFlags())
	root.AddCommand(handlers.Commands()...)
	return root
}

const (
	exitRuntimeError = 1
	exitUsageError   = 2
)

func exitCode(err error) int {
	if _, ok := err.(runError); ok {
		return exitRuntimeError
	}
	return exitUsageError
}

// Execute runs the command tree. Runtime failures exit 1; input mistakes
// (unknown flags, missing arguments) exit 2 after cobra prints usage.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "nodeaudit: %v\n", err)
		os.Exit(exitCode(err))
	}
}
