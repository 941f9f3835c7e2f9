// Package server holds the HTTP server configuration.
//
// While the serve command handles the server startup, this package defines the
// configuration structure for the HTTP trigger: listen port, API key and the
// maximum accepted request body.
//
// # Usage
//
// This package is primarily used by the core/config package to embed server settings
// and by the serve command to configure Fiber.
package server
