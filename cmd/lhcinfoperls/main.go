package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/armadaproject/popcon/internal/common"
	commonconfig "github.com/armadaproject/popcon/internal/common/config"
	"github.com/armadaproject/popcon/internal/common/logging"
	"github.com/armadaproject/popcon/internal/lhcinfoperls"
	"github.com/armadaproject/popcon/internal/lhcinfoperls/configuration"
)

const CustomConfigLocation = "config"

func init() {
	pflag.StringSlice(
		CustomConfigLocation,
		[]string{},
		"Fully qualified path to application configuration file (for multiple config files repeat this arg or separate paths with commas)",
	)
	pflag.Parse()
}

func main() {
	common.ConfigureLogging()
	common.BindCommandlineArguments()

	var config configuration.LHCInfoPerLSConfiguration
	userSpecifiedConfigs := viper.GetStringSlice(CustomConfigLocation)

	common.LoadConfig(&config, "./config/lhcinfoperls", userSpecifiedConfigs)

	if err := config.Validate(); err != nil {
		commonconfig.LogValidationErrors(err)
		os.Exit(1)
	}

	if err := lhcinfoperls.Run(config); err != nil {
		logging.WithStacktrace(log.NewEntry(log.StandardLogger()), err).Error("LHCInfoPerLS populator failed")
		os.Exit(1)
	}
}
