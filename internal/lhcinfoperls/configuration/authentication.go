package configuration

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"golang.org/x/exp/maps"
)

const authenticationFile = "authentication.yaml"

// LoadAuthentication reads the connection parameters (e.g. user and password) stored in the authentication file of
// dir. They are kept apart from the main configuration so that it can be shared without exposing credentials.
// An empty dir or a missing file yields no parameters.
func LoadAuthentication(dir string) (map[string]string, error) {
	if dir == "" {
		return map[string]string{}, nil
	}
	path := filepath.Join(dir, authenticationFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "error reading authentication file %s", path)
	}
	return v.GetStringMapString("postgres"), nil
}

// WithAuthentication returns a copy of the configuration whose Postgres connection parameters include those of the
// authentication file. Parameters set in the configuration take precedence.
func (c LHCInfoPerLSConfiguration) WithAuthentication() (LHCInfoPerLSConfiguration, error) {
	auth, err := LoadAuthentication(c.AuthenticationPath)
	if err != nil {
		return c, err
	}
	connection := maps.Clone(auth)
	if connection == nil {
		connection = map[string]string{}
	}
	maps.Copy(connection, c.Postgres.Connection)
	c.Postgres.Connection = connection
	return c, nil
}
