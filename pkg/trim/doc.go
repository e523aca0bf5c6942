// Package trim cuts diagnostic log files down to a recent time window.
//
// # Overview
//
// A must-gather tree holds two families of logs:
//   - Pod logs, whose lines start with an ISO-8601 timestamp
//     (2024-01-01T00:00:05.123Z ...)
//   - Node logs (kubelet, NetworkManager), exported from the journal with
//     syslog-style timestamps that carry no year (Jan  1 00:30:00 ...) and
//     a header line bounding the export
//
// Every file is trimmed in place so that only lines at or after a Deadline
// remain. Files are never read into memory as a whole: the Scanner probes
// the file backwards in fixed-size chunks until it finds a line older than
// the deadline, then walks forward line by line to the exact cut.
//
// # Usage
//
//	deadline := trim.NewDeadline(time.Now(), 30*time.Minute)
//	walker := trim.NewWalker(trim.DefaultWalkerConfig())
//
//	report, err := walker.Run(ctx, "gather-files/", deadline)
//	if err != nil {
//	    return err // root could not be walked
//	}
//	for _, fe := range report.Errors {
//	    log.Printf("skipped %s: %v", fe.Path, fe.Err)
//	}
//
//	// ... archive the trimmed tree ...
//
//	restored, err := walker.Backups().Restore("gather-files/")
//
// # Backups
//
// Before a file is rewritten its pristine bytes are copied to a concealed
// sibling (.<name>.orig). Archivers skip concealed files, so the archive
// holds the trimmed view; Restore moves every backup back afterwards.
//
// # Classification
//
// Each line is Earlier, Later or NoTimestamp relative to the deadline.
// NoTimestamp lines (stack traces, wrapped output) are kept together with
// the next Later line so that multi-line entries are never split at the cut.
package trim
