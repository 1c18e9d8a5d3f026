// Package cmd provides the command-line interface for fileclaim.
//
// This package implements all CLI commands using the Cobra framework.
//
// # Available Commands
//
//   - init: write a starter .fileclaim.yml
//   - poll: claim and process files until interrupted
//   - once: run a single poll cycle
//   - locks: list or break marker lock artifacts
//   - config: print the effective configuration
//   - version: print build information
//
// # Command Examples
//
//	// Poll ./inbox every ten seconds, gzipping each claimed file
//	fileclaim poll --dir ./inbox --interval 10s
//
//	// Two pollers sharing one directory on a network mount
//	fileclaim poll --dir /mnt/shared/in --locker marker
//
//	// Clear locks left behind by a crashed poller
//	fileclaim locks --break --orphans
package cmd
