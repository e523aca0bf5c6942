/*
Package cli provides helpers shared by the gathertrim commands.

Output Formatting:

Commands print results as text or JSON, selected by --output:

	format, err := cli.ParseFormat(output)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), result)

A *Table prints aligned columns as text and its Records as JSON.

Progress Reporting:

Progress wraps the metrics recorder of a trim run and prints a running
count of processed files to stderr.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Errors:

ExitCode maps command errors to process exit codes: configuration
problems, oversized archives and Bugzilla API errors each have their own.
*/
package cli
