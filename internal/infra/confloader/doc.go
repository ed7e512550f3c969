// Package confloader loads configuration with koanf.
//
// Sources are applied in order, later ones overriding earlier ones:
//
//  1. Defaults already present in the target struct
//  2. YAML configuration file
//  3. Environment variables (STOWAGE_<SECTION>_<KEY>)
//  4. Explicit overrides, usually from command-line flags
//
// A Watcher reports edits to the configuration file so long-running
// commands can re-read it.
package confloader
