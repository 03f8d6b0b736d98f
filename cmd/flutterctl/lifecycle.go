package main

import (
	"github.com/spf13/cobra"
)

func newReloadCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Hot reload the running app",
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectDir, err := opts.resolveProjectDir()
			if err != nil {
				return err
			}
			svc, err := opts.newService()
			if err != nil {
				return asExitError(err)
			}
			if err := svc.Reload(cmd.Context(), projectDir, opts.url); err != nil {
				return asExitError(err)
			}
			if opts.jsonOutput {
				return writeJSON(map[string]any{"reloaded": true})
			}
			cmd.Println("reloaded")
			return nil
		},
	}
}

func newRestartCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Hot restart the running app (managed process only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectDir, err := opts.resolveProjectDir()
			if err != nil {
				return err
			}
			svc, err := opts.newService()
			if err != nil {
				return asExitError(err)
			}
			if err := svc.Restart(cmd.Context(), projectDir, opts.url); err != nil {
				return asExitError(err)
			}
			if opts.jsonOutput {
				return writeJSON(map[string]any{"restarted": true})
			}
			cmd.Println("restarted")
			return nil
		},
	}
}

func newStatusCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the managed process and connection state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectDir, err := opts.resolveProjectDir()
			if err != nil {
				return err
			}
			svc, err := opts.newService()
			if err != nil {
				return asExitError(err)
			}
			status := svc.Status(cmd.Context(), projectDir, opts.url)
			if err := printStatus(status, opts.jsonOutput); err != nil {
				return err
			}
			// Scripts branch on the exit code: 3 means nothing is running.
			if !status.Managed && status.URL == "" {
				return exitSilent(3)
			}
			return nil
		},
	}
}

func newStopCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the managed Flutter process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectDir, err := opts.resolveProjectDir()
			if err != nil {
				return err
			}
			svc, err := opts.newService()
			if err != nil {
				return asExitError(err)
			}
			record, err := svc.Stop(cmd.Context(), projectDir)
			if err != nil {
				return asExitError(err)
			}
			if opts.jsonOutput {
				stopped := record != nil
				payload := map[string]any{"stopped": stopped}
				if stopped {
					payload["pid"] = record.PID
				}
				return writeJSON(payload)
			}
			if record == nil {
				cmd.Println("nothing to stop")
				return nil
			}
			cmd.Printf("stopped pid %d\n", record.PID)
			return nil
		},
	}
}
