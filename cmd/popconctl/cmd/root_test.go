package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/popcon/internal/common/conddb"
	"github.com/armadaproject/popcon/internal/popconctl"
)

func TestInitParams(t *testing.T) {
	root := RootCmd()
	tags, _, err := root.Find([]string{"tags"})
	require.NoError(t, err)
	require.NoError(t, root.PersistentFlags().Set(databaseFlag, "/tmp/conditions.sqlite"))

	params := &popconctl.Params{}
	require.NoError(t, initParams(tags, params))
	assert.Equal(t, "/tmp/conditions.sqlite", params.DatabasePath)
}

func TestInitParams_Environment(t *testing.T) {
	t.Setenv("POPCON_DB", "/tmp/from-env.sqlite")
	root := RootCmd()
	tags, _, err := root.Find([]string{"tags"})
	require.NoError(t, err)

	params := &popconctl.Params{}
	require.NoError(t, initParams(tags, params))
	assert.Equal(t, "/tmp/from-env.sqlite", params.DatabasePath)
}

func TestTagsCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conddb.sqlite")
	store, err := conddb.Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	out := &bytes.Buffer{}
	a := &popconctl.App{Params: &popconctl.Params{}, Out: out}
	cmd := tagsCmd(a)
	cmd.Flags().String(databaseFlag, path, "")
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "NAME")
}
