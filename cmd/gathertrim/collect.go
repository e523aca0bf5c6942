package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"medik8s/gathertrim/pkg/cli"
	"medik8s/gathertrim/pkg/pipeline"
)

var collectFlags struct {
	reuse        bool
	images       []string
	imageStreams []string
	destDir      string
	apiKey       string
	progress     bool
	output       string
}

var collectCmd = &cobra.Command{
	Use:   "collect <bug-id>",
	Short: "Gather, trim, archive and attach to a Bugzilla bug",
	Long: `Run "oc adm must-gather", trim the result to the configured window,
archive it, restore the original files and attach the archive to a bug.

The bug is checked before anything is collected. The original files are
restored even when archiving fails. An archive over archive.max_size is
not uploaded and the command exits with code 3.

The Bugzilla API key comes from bugzilla.api_key, GATHERTRIM_BUGZILLA_API_KEY,
BUGZILLA_API_KEY or --api-key.

Examples:
  # Collect with the default image and attach to bug 1234567
  gathertrim collect 1234567

  # Trim and upload a collection that is already on disk
  gathertrim collect 1234567 --reuse --dest-dir ./must-gather

  # Use a different must-gather image
  gathertrim collect 1234567 --image quay.io/openshift/origin-must-gather`,
	Args: cobra.ExactArgs(1),
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().BoolVarP(&collectFlags.reuse, "reuse", "r", false, "reuse the existing collection in the destination directory")
	collectCmd.Flags().StringSliceVar(&collectFlags.images, "image", nil, "must-gather image (repeatable)")
	collectCmd.Flags().StringSliceVar(&collectFlags.imageStreams, "image-stream", nil, "must-gather image stream (repeatable)")
	collectCmd.Flags().StringVar(&collectFlags.destDir, "dest-dir", "", "collection directory (overrides gather.dest_dir)")
	collectCmd.Flags().StringVar(&collectFlags.apiKey, "api-key", "", "Bugzilla API key (overrides bugzilla.api_key)")
	collectCmd.Flags().BoolVar(&collectFlags.progress, "progress", false, "show a progress line on stderr")
	collectCmd.Flags().StringVarP(&collectFlags.output, "output", "o", "text", "output format: text, json")
}

func parseBugID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, cli.NewConfigError("bug-id", "must be a positive integer, got "+strconv.Quote(s))
	}
	return id, nil
}

func runCollect(cmd *cobra.Command, args []string) error {
	bugID, err := parseBugID(args[0])
	if err != nil {
		return err
	}
	if _, err := cli.ParseFormat(collectFlags.output); err != nil {
		return err
	}

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	cfg := *a.cfg
	if len(collectFlags.images) > 0 {
		cfg.Gather.Images = collectFlags.images
	}
	if len(collectFlags.imageStreams) > 0 {
		cfg.Gather.ImageStreams = collectFlags.imageStreams
	}
	if collectFlags.destDir != "" {
		cfg.Gather.DestDir = collectFlags.destDir
	}
	if collectFlags.apiKey != "" {
		cfg.Bugzilla.APIKey = collectFlags.apiKey
	}
	if cfg.Bugzilla.APIKey == "" {
		return cli.NewConfigError("bugzilla.api_key", "an API key is required to attach to a bug")
	}

	ctx, cancel := cli.SetupSignalHandler(cmd.Context())
	defer cancel()

	recorder, finish := a.recorder(collectFlags.progress)
	p := a.pipeline(&cfg,
		pipeline.WithRecorder(recorder),
		pipeline.WithGatherer(a.gatherer(&cfg.Gather)),
		pipeline.WithUploader(a.bugzillaClient(&cfg.Bugzilla)),
	)
	out, err := p.Collect(ctx, bugID, pipeline.CollectOptions{Reuse: collectFlags.reuse})
	finish()
	a.flushMetrics()
	if err != nil {
		return cli.NewCommandError("collect", err)
	}
	return writeResult(collectFlags.output, out)
}
