package cdc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/gitvault/config"
	"github.com/antgroup/gitvault/errs"
)

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	sink := SinkFunc(func(context.Context, []Row) error { return nil })
	p := NewPipeline("repo-1", config.Pipeline{BatchSize: 1}, config.Retry{}, sink)

	require.NoError(t, r.Register("repo-1", p))
	require.Same(t, p, r.Get("repo-1"))
	require.Equal(t, []string{"repo-1"}, r.IDs())

	err := r.Register("repo-1", p)
	require.True(t, errs.IsAlreadyExists(err))

	require.True(t, r.Unregister("repo-1"))
	require.False(t, r.Unregister("repo-1"))
	require.Nil(t, r.Get("repo-1"))
}
