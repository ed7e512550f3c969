// Package command defines the stowage command-line interface.
//
//   - root.go: App, global flags, configuration loading
//   - runtime.go: manager construction and output helpers
//   - data.go: get, set, del, has, keys, clear
//   - info.go: stats, config, version
//   - watch.go: long-running mode with metrics and reload
package command
