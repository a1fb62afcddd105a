package main

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetConfig restores viper and the flags a test may touch.
func resetConfig(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		viper.Reset()
		f := rootCmd.Flags()
		_ = f.Set("no-merge", "false")
		_ = f.Set("format", "csv")
		f.Lookup("no-merge").Changed = false
		f.Lookup("format").Changed = false
	})
}

func TestInitConfig_FormatLayeredUnderFlag(t *testing.T) {
	resetConfig(t)
	viper.Set("format", "jsonl")
	initConfig()
	assert.Equal(t, "jsonl", flagFormat)
}

func TestInitConfig_MergeFalseDisablesMerging(t *testing.T) {
	resetConfig(t)
	viper.Set("merge", false)
	initConfig()
	assert.True(t, flagNoMerge)
}

func TestInitConfig_MergeTrueKeepsDefault(t *testing.T) {
	resetConfig(t)
	viper.Set("merge", true)
	initConfig()
	assert.False(t, flagNoMerge)
}

func TestInitConfig_ExplicitFlagBeatsMergeKey(t *testing.T) {
	resetConfig(t)
	viper.Set("merge", false)
	// pflag marks the flag as changed, as a command-line use would.
	require.NoError(t, rootCmd.Flags().Set("no-merge", "false"))
	initConfig()
	assert.False(t, flagNoMerge)
}
