package klog

import (
	"flag"
	"strconv"

	"go.uber.org/zap"
	"k8s.io/klog/v2"
)

// InitializeKlog sets the klog verbosity. client-go logs through klog, so
// this controls how chatty the Kubernetes machinery is.
func InitializeKlog(verbosity int32) {
	fs := flag.NewFlagSet("klog", flag.PanicOnError)
	klog.InitFlags(fs)
	_ = fs.Set("v", strconv.Itoa(int(verbosity)))
	_ = fs.Set("logtostderr", "false")
}

// RedirectToLogger redirects all klog logs to a zap logger.
// This is useful to have a single format for all logs while also getting log messages from libraries that use klog (kubernetes).
func RedirectToLogger(logger *zap.Logger) {
	severityToLogFunc := map[string]func(msg string, fields ...zap.Field){
		"INFO":    logger.Info,
		"WARNING": logger.Warn,
		"ERROR":   logger.Error,
		"FATAL":   logger.Fatal,
	}
	for name, logFunc := range severityToLogFunc {
		writer := &zapperWriter{
			logFunc: logFunc,
		}
		klog.SetOutputBySeverity(name, writer)
	}
}

type zapperWriter struct {
	logFunc func(msg string, fields ...zap.Field)
}

func (z *zapperWriter) Write(p []byte) (n int, err error) {
	z.logFunc(string(p), zap.String("source", "klog"))
	return len(p), nil
}
