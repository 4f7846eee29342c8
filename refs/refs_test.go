package refs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateReferenceName(t *testing.T) {
	good := []string{
		"refs/heads/main",
		"refs/tags/v1.0.0",
		"HEAD",
		"FETCH_HEAD",
		"refs/heads/feature/x",
	}
	for _, n := range good {
		require.NoErrorf(t, Validate(n), "expected %q to validate", n)
	}

	bad := []string{
		"",
		"@",
		"refs/heads/..",
		"refs/heads/a..b",
		"refs/heads/a@{b",
		"refs/heads/",
		"refs/heads//x",
		"refs/heads/.hidden",
		"refs/heads/trailing.",
		"refs/heads/x.lock",
		"refs/heads/has space",
		"refs/heads/has~tilde",
	}
	for _, n := range bad {
		require.Errorf(t, Validate(n), "expected %q to fail validation", n)
	}
}

func TestValidateBranchShortName(t *testing.T) {
	require.NoError(t, ValidateBranchShortName("main"))
	require.Error(t, ValidateBranchShortName("-weird"))
	require.Error(t, ValidateBranchShortName("HEAD"))
	require.Error(t, ValidateBranchShortName("refs/heads/main"))
}

func TestValidateRemoteName(t *testing.T) {
	require.NoError(t, ValidateRemoteName("origin"))
	require.Error(t, ValidateRemoteName("a/b"))
}
