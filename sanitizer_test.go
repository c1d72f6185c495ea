package actorloop

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeInboundWrapsRawFunc(t *testing.T) {
	l, err := NewLoop()
	require.NoError(t, err)
	defer l.Shutdown()

	raw := Func(func(args []any) (any, error) { return nil, nil })
	out, err := l.SanitizeInbound([]any{raw})
	require.NoError(t, err)
	require.IsType(t, &ExternalCallable{}, out[0])
}

func TestSanitizeInboundUnwrapsOwnWrapper(t *testing.T) {
	l, err := NewLoop()
	require.NoError(t, err)
	defer l.Shutdown()

	called := false
	proc := l.WrapAsync("cb", func(args []any) (any, error) {
		called = true
		return nil, nil
	})

	out, err := l.SanitizeInbound([]any{proc})
	require.NoError(t, err)
	fn, ok := out[0].(Func)
	require.True(t, ok)
	_, _ = fn(nil)
	require.True(t, called)
}

func TestSanitizeInboundLeavesOtherLoopWrappersOpaque(t *testing.T) {
	l1, err := NewLoop()
	require.NoError(t, err)
	defer l1.Shutdown()
	l2, err := NewLoop()
	require.NoError(t, err)
	defer l2.Shutdown()

	proc := l1.WrapAsync("cb", func(args []any) (any, error) { return nil, nil })
	out, err := l2.SanitizeInbound([]any{proc})
	require.NoError(t, err)
	require.Same(t, proc, out[0])
}

func TestSanitizeInboundPassesThroughHandle(t *testing.T) {
	l, err := NewLoop()
	require.NoError(t, err)
	defer l.Shutdown()

	h := l.NewHandle(struct{ x int }{x: 1})
	out, err := l.SanitizeInbound([]any{h})
	require.NoError(t, err)
	require.Same(t, h, out[0])
}

func TestSanitizeOutboundRejectsBareFunc(t *testing.T) {
	l, err := NewLoop()
	require.NoError(t, err)
	defer l.Shutdown()

	_, err = l.SanitizeOutbound(Func(func(args []any) (any, error) { return nil, nil }))
	require.Error(t, err)
	require.ErrorIs(t, err, &InvalidBoundaryError{})
}

func TestSanitizeOutboundPassesThroughWrapped(t *testing.T) {
	l, err := NewLoop()
	require.NoError(t, err)
	defer l.Shutdown()

	proc := l.WrapSync("cb", func(args []any) (any, error) { return nil, nil })
	out, err := l.SanitizeOutbound(proc)
	require.NoError(t, err)
	require.Same(t, proc, out)
}
