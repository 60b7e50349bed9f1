package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/armadaproject/popcon/internal/popconctl"
)

const databaseFlag = "db"

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "popconctl",
		Short:        "popconctl inspects the tags, IOVs and payloads of a conditions database.",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String(databaseFlag, "conddb.sqlite", "Path of the SQLite conditions database (env: POPCON_DB)")

	a := popconctl.New()
	cmd.AddCommand(
		tagsCmd(a),
		iovsCmd(a),
		payloadCmd(a),
		executionsCmd(a),
		versionCmd(a),
	)
	return cmd
}

// initParams reads the flags shared by every command into params.
func initParams(cmd *cobra.Command, params *popconctl.Params) error {
	v := viper.New()
	v.SetEnvPrefix("POPCON")
	if err := v.BindEnv(databaseFlag); err != nil {
		return err
	}
	if err := v.BindPFlag(databaseFlag, cmd.Flag(databaseFlag)); err != nil {
		return err
	}
	params.DatabasePath = v.GetString(databaseFlag)
	return nil
}
