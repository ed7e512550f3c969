// Package shutdown coordinates process termination.
//
// A Handler waits for SIGINT or SIGTERM (or a cancelled context), then
// runs the registered hooks in reverse order under a timeout. SIGHUP runs
// the reload hooks and keeps waiting.
package shutdown
