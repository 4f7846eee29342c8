package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileModeRoundTrip(t *testing.T) {
	for _, m := range []FileMode{ModeDir, ModeFile, ModeExecutable, ModeSymlink, ModeSubmodule} {
		parsed, err := ParseFileMode(m.String())
		require.NoError(t, err)
		require.Equal(t, m, parsed)
	}
}

func TestFileModeRejectsUnsupported(t *testing.T) {
	_, err := ParseFileMode("100600")
	require.Error(t, err)
}

func TestFileModeDirString(t *testing.T) {
	require.Equal(t, "40000", ModeDir.String())
}
