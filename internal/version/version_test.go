package version

import (
	"bytes"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestVersionStrings ensures Short and Full return non-empty consistent information.
func TestVersionStrings(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, Short())
	require.Contains(t, Full(), Short())
	require.Contains(t, Full(), runtime.Version())
	require.Equal(t, "safetyctl/"+Short(), UserAgent("safetyctl"))
}

// TestVersionCommand runs the attached subcommand with and without --short.
func TestVersionCommand(t *testing.T) {
	t.Parallel()

	for args, want := range map[string]string{
		"":        Full(),
		"--short": Short(),
	} {
		root := &cobra.Command{Use: "safetyctl"}
		AttachCobraVersionCommand(root)

		var out bytes.Buffer

		root.SetOut(&out)
		root.SetArgs(strings.Fields("version " + args))

		require.NoError(t, root.Execute())
		require.Equal(t, want+"\n", out.String())
	}
}
