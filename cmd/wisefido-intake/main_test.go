package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "wisefido-intake dev")
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["export"])
	assert.True(t, names["version"])
}

func TestExportCmd_RequiresAudit(t *testing.T) {
	t.Setenv("INTAKE_CONFIG", "")
	t.Setenv("DB_ENABLED", "false")

	cmd := newRootCmd()
	var errOut bytes.Buffer
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"export", "--out", t.TempDir() + "/out.xlsx"})

	assert.Equal(t, 1, execute(cmd))
	assert.Contains(t, errOut.String(), "DB_ENABLED")
}
