package actorloop

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCallKindString(t *testing.T) {
	require.Equal(t, "async", KindAsync.String())
	require.Equal(t, "sync", KindSyncReply.String())
	require.Equal(t, "yield", KindDeferredReply.String())
	require.Equal(t, "unknown", CallKind(99).String())
}
