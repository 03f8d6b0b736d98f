package main

import (
	"github.com/spf13/cobra"
)

func newDumpRenderCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump-render",
		Short: "Print the render tree text dump",
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectDir, err := opts.resolveProjectDir()
			if err != nil {
				return err
			}
			svc, err := opts.newService()
			if err != nil {
				return asExitError(err)
			}
			dump, err := svc.DumpRender(cmd.Context(), projectDir, opts.url)
			if err != nil {
				return asExitError(err)
			}
			return printTextDump(dump, opts.jsonOutput)
		},
	}
}

func newDumpSemanticsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump-semantics",
		Short: "Print the semantics tree in traversal order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectDir, err := opts.resolveProjectDir()
			if err != nil {
				return err
			}
			svc, err := opts.newService()
			if err != nil {
				return asExitError(err)
			}
			dump, err := svc.DumpSemantics(cmd.Context(), projectDir, opts.url)
			if err != nil {
				return asExitError(err)
			}
			return printTextDump(dump, opts.jsonOutput)
		},
	}
}

func newScreenshotCmd(opts *cliOptions) *cobra.Command {
	var (
		output  string
		valueID string
	)
	cmd := &cobra.Command{
		Use:   "screenshot",
		Short: "Capture the app as a PNG file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectDir, err := opts.resolveProjectDir()
			if err != nil {
				return err
			}
			svc, err := opts.newService()
			if err != nil {
				return asExitError(err)
			}
			size, err := svc.Screenshot(cmd.Context(), projectDir, opts.url, valueID, output)
			if err != nil {
				return asExitError(err)
			}
			if opts.jsonOutput {
				return writeJSON(map[string]any{"path": output, "bytes": size})
			}
			cmd.Printf("wrote %s (%d bytes)\n", output, size)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "screenshot.png", "output file path")
	cmd.Flags().StringVar(&valueID, "widget", "", "capture only the widget with this value id")
	return cmd
}
