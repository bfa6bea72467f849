// Package logger provides slog construction and attribute helpers shared by
// the dispatcher, stores and the flux container.
//
// # Basic Usage
//
//	log := logger.New(
//		logger.WithLevelString("debug"),
//		logger.WithFormat("json"),
//	)
//
//	log.Info("dispatch complete",
//		logger.ActionType(p.ActionType),
//		logger.DispatchID(p.DispatchID),
//		logger.Elapsed(start),
//	)
//
// # Nil Safety
//
// Helpers return an empty slog.Attr for zero inputs, which slog drops:
//
//	log.Error("handler failed", logger.Error(err)) // no "error" key when err is nil
//	log.Debug("store changed", logger.Store(""))   // no "store" key
//
// Components that receive no logger use Discard.
package logger
