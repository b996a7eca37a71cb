// Package monitor provides output rendering and exit-code logic for cissync.
package monitor

import "github.com/ppiankov/cissync/internal/syncer"

// ExitCode returns a process exit code for a completed sync run.
//
//	0 = every policy created or skipped
//	1 = one or more policy creations failed
//
// Fatal startup errors (config, connectivity, bundle load) never reach
// this point; they exit 1 through the command error path.
func ExitCode(res syncer.Result) int {
	if res.Failed > 0 {
		return 1
	}
	return 0
}
