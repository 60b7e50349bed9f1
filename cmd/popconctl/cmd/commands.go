package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/armadaproject/popcon/internal/popconctl"
)

func tagsCmd(a *popconctl.App) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List the tags of the conditions database",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ListTags()
		},
	}
}

func iovsCmd(a *popconctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iovs <tag>",
		Short: "List the IOVs of a tag",
		Long: `List the intervals of validity of a tag in since order, with the payload each of them points to.

The --from flag accepts times such as "2023-06-01 10:00:00.000" or "2023-06-01T10:00:00Z" (UTC).`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fromFlag, err := cmd.Flags().GetString("from")
			if err != nil {
				return fmt.Errorf("error reading from: %s", err)
			}
			from, err := popconctl.ParseFrom(fromFlag)
			if err != nil {
				return err
			}
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return fmt.Errorf("error reading limit: %s", err)
			}
			return a.ListIovs(args[0], from, limit)
		},
	}
	cmd.Flags().String("from", "", "Only list IOVs valid since this time")
	cmd.Flags().Int("limit", 0, "Maximum number of IOVs listed; 0 lists them all")
	return cmd
}

func payloadCmd(a *popconctl.App) *cobra.Command {
	return &cobra.Command{
		Use:   "payload <hash>",
		Short: "Print a payload",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ShowPayload(args[0])
		},
	}
}

func executionsCmd(a *popconctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "executions <tag>",
		Short: "List the most recent populator executions for a tag",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return fmt.Errorf("error reading limit: %s", err)
			}
			return a.ListExecutions(args[0], limit)
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of executions listed; 0 lists them all")
	return cmd
}

func versionCmd(a *popconctl.App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print popconctl version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Version()
		},
	}
}
