// Package workerapi provides the HTTP handlers of the internal listener used
// by scrape workers and task producers. Every route requires worker
// credentials.
package workerapi
