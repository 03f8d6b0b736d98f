package main

import (
	"github.com/spf13/cobra"

	"flutterctl/internal/infra/snapshot"
)

func newSnapshotCmd(opts *cliOptions) *cobra.Command {
	var (
		depth   *int
		filter  string
		compact bool
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the widget tree of the running app",
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectDir, err := opts.resolveProjectDir()
			if err != nil {
				return err
			}
			svc, err := opts.newService()
			if err != nil {
				return asExitError(err)
			}

			snapOpts := snapshot.Options{MaxDepth: depth, Filter: filter, Compact: compact}
			tree, err := svc.Snapshot(cmd.Context(), projectDir, opts.url, snapOpts)
			if err != nil {
				return asExitError(err)
			}
			return printSnapshot(tree, opts.jsonOutput)
		},
	}
	cmd.Flags().Var(&optionalInt{target: &depth}, "depth", "maximum tree depth to display (unlimited when unset)")
	cmd.Flags().StringVar(&filter, "filter", "", "only show widgets whose type matches (substring, or glob with *)")
	cmd.Flags().BoolVar(&compact, "compact", false, "hide framework wrapper widgets")
	return cmd
}

func newDetailsCmd(opts *cliOptions) *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "details <value-id>",
		Short: "Print the property subtree of a widget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir, err := opts.resolveProjectDir()
			if err != nil {
				return err
			}
			svc, err := opts.newService()
			if err != nil {
				return asExitError(err)
			}
			raw, err := svc.Details(cmd.Context(), projectDir, opts.url, args[0], depth)
			if err != nil {
				return asExitError(err)
			}
			return printRawResult("details", raw, opts.jsonOutput)
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 2, "property subtree depth")
	return cmd
}

func newLayoutCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout <value-id>",
		Short: "Print layout constraints and sizes for a widget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir, err := opts.resolveProjectDir()
			if err != nil {
				return err
			}
			svc, err := opts.newService()
			if err != nil {
				return asExitError(err)
			}
			raw, err := svc.Layout(cmd.Context(), projectDir, opts.url, args[0])
			if err != nil {
				return asExitError(err)
			}
			return printRawResult("layout", raw, opts.jsonOutput)
		},
	}
	return cmd
}
