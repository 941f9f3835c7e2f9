// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments (development vs production)
// and integrates with the Fiber web framework used by the HTTP trigger.
//
// # Context Awareness
//
// Loggers are passed explicitly to every component. Two helpers scope them:
//   - WithRayID extracts the RayID from a Fiber context so all logs of one request correlate.
//   - WithResource attaches the resource kind and region handled by an ingestion run.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Encoding: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Exporter started")
//
//	l := logger.WithResource(log, "AWS::EC2::VPC", "eu-west-1")
//	l.Error("Fetch failed", zap.Error(err))
package logger
