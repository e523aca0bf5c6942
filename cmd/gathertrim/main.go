// gathertrim trims must-gather collections to a recent time window before
// they are archived and attached to a bug.
//
// Pod logs and node journal exports under the collection are cut in place
// to the lines newer than "now minus the window". The discarded bytes are
// kept in concealed backups that are moved back once the archive is
// written, so the tree on disk ends up as it was collected.
//
// Usage:
//
//	# Trim a collection to the last 30 minutes, keeping the backups
//	gathertrim trim ./must-gather --window 30m
//
//	# Put the original files back
//	gathertrim restore ./must-gather
//
//	# Collect, trim, archive and attach to bug 1234567
//	gathertrim collect 1234567
//
//	# Repeat trim, archive and restore on a cron schedule
//	gathertrim schedule --root ./must-gather
//
//	# Show recent runs
//	gathertrim history
package main

func main() {
	Execute()
}
