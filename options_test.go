package actorloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveOptionsDefaults(t *testing.T) {
	cfg, err := resolveOptions(nil)
	require.NoError(t, err)
	require.Equal(t, "", cfg.name)
	require.Equal(t, time.Duration(0), cfg.guardTime)
	require.Nil(t, cfg.pool)
	require.NotNil(t, cfg.logger.l)
}

func TestResolveOptionsApplied(t *testing.T) {
	pool := &fakePool{}
	cfg, err := resolveOptions([]LoopOption{
		WithName("box-1"),
		WithGuardTime(50 * time.Millisecond),
		WithThreadpool(pool),
		nil, // nils are skipped
	})
	require.NoError(t, err)
	require.Equal(t, "box-1", cfg.name)
	require.Equal(t, 50*time.Millisecond, cfg.guardTime)
	require.Same(t, pool, cfg.pool)
}

type fakePool struct {
	n int
}

func (p *fakePool) Go(fn func()) {
	p.n++
	go fn()
}
