// Package utils provides common utility functions for the resource-exporter application.
// It includes conversion helpers for values produced by mapping expressions and other
// shared logic that doesn't fit into domain-specific packages.
package utils
