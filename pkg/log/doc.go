// Package log provides the logging abstraction used across bundlekit.
//
// The framework, the lifecycle engine and the plugins only depend on the
// Logger interface. A zerolog adapter and a no-op logger are provided.
//
// # Usage
//
//	logger, err := log.NewZerologAdapter(os.Stderr, "debug")
//	if err != nil {
//	    return err
//	}
//	workerLog := logger.With(log.Uint64("worker", 3))
//	workerLog.Info("claimed operation", log.String("op", "start"))
//
// Tests and embedders that want silence use log.NewNoopLogger().
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
package log
