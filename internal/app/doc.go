// Package app provides application initialization and lifecycle management
// for the acadreport service. It wires configuration, logging, metrics, the
// analysis and report services, and the HTTP server together, and handles
// graceful shutdown.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from environment and files
//	2. Initialize structured logging
//	3. Create the metrics registry
//	4. Initialize services with their dependencies
//	5. Set up HTTP handlers and middleware
//	6. Configure and start the HTTP server
//
// # Usage
//
//	app, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := app.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Run blocks until SIGINT or SIGTERM, then drains active requests within
// the configured shutdown timeout. Initialization errors are returned to
// the caller; the package never calls os.Exit directly.
package app
