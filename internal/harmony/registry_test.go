package harmony_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bli0428/vocalharmony/internal/harmony"
	"github.com/bli0428/vocalharmony/pkg/audio/mock"
)

func TestRegistry_EnsureCreatesOnce(t *testing.T) {
	t.Parallel()
	dev := mock.NewDevice()
	reg := harmony.NewRegistry(dev, harmony.ChainParams{WindowMs: 40}, nil)
	rec := testRecording(t)

	c1, err := reg.Ensure(context.Background(), 7, rec)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	c2, err := reg.Ensure(context.Background(), 7, rec)
	if err != nil {
		t.Fatalf("second Ensure: %v", err)
	}

	if c1 != c2 {
		t.Error("Ensure should return the same chain for the same offset")
	}
	if got := dev.PlayerCount(); got != 1 {
		t.Errorf("players created = %d, want 1", got)
	}
	if got := reg.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
	if reg.Chain(7) != c1 {
		t.Error("Chain(+7) should return the registered chain")
	}
}

func TestRegistry_EnsureInvalidOffset(t *testing.T) {
	t.Parallel()
	reg := harmony.NewRegistry(mock.NewDevice(), harmony.ChainParams{}, nil)

	if _, err := reg.Ensure(context.Background(), 13, testRecording(t)); !errors.Is(err, harmony.ErrOffsetRange) {
		t.Errorf("Ensure(13) error = %v, want ErrOffsetRange", err)
	}
	if got := reg.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}

func TestRegistry_EnsureReleasesOnLoadFailure(t *testing.T) {
	t.Parallel()
	dev := mock.NewDevice()
	dev.PlayerDefaults.BindErr = errors.New("device is out of slots")
	reg := harmony.NewRegistry(dev, harmony.ChainParams{WindowMs: 40}, nil)

	_, err := reg.Ensure(context.Background(), 3, testRecording(t))
	var le *harmony.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("Ensure error = %v, want *LoadError", err)
	}
	if got := reg.Len(); got != 0 {
		t.Errorf("Len() after failed load = %d, want 0", got)
	}
	if got := dev.Players()[0].CloseCount(); got != 1 {
		t.Errorf("failed chain's player CloseCount() = %d, want 1", got)
	}

	// A later Ensure starts clean with a fresh player.
	dev.PlayerDefaults.BindErr = nil
	if _, err := reg.Ensure(context.Background(), 3, testRecording(t)); err != nil {
		t.Fatalf("Ensure after recovery: %v", err)
	}
	if got := dev.PlayerCount(); got != 2 {
		t.Errorf("players created = %d, want 2", got)
	}
}

func TestRegistry_ReleaseDisposesExactlyOnce(t *testing.T) {
	t.Parallel()
	dev := mock.NewDevice()
	reg := harmony.NewRegistry(dev, harmony.ChainParams{WindowMs: 40}, nil)

	if _, err := reg.Ensure(context.Background(), -4, testRecording(t)); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	reg.Release(-4)
	reg.Release(-4) // absent now; must be a no-op

	if got := reg.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
	if reg.Chain(-4) != nil {
		t.Error("Chain(-4) should be nil after release")
	}
	if got := dev.Players()[0].CloseCount(); got != 1 {
		t.Errorf("player CloseCount() = %d, want 1", got)
	}
}

func TestRegistry_ReleaseUnknownOffset(t *testing.T) {
	t.Parallel()
	reg := harmony.NewRegistry(mock.NewDevice(), harmony.ChainParams{}, nil)
	reg.Release(9) // nothing registered; must not panic
}

func TestRegistry_DisposeAllThenReuse(t *testing.T) {
	t.Parallel()
	dev := mock.NewDevice()
	reg := harmony.NewRegistry(dev, harmony.ChainParams{WindowMs: 40}, nil)
	rec := testRecording(t)

	for _, o := range []harmony.Offset{4, 7} {
		if _, err := reg.Ensure(context.Background(), o, rec); err != nil {
			t.Fatalf("Ensure(%s): %v", o, err)
		}
	}

	reg.DisposeAll()
	if got := reg.Len(); got != 0 {
		t.Fatalf("Len() after DisposeAll = %d, want 0", got)
	}
	for i, p := range dev.Players() {
		if got := p.CloseCount(); got != 1 {
			t.Errorf("player %d CloseCount() = %d, want 1", i, got)
		}
	}

	// No residual disposed state blocks reuse of the same offsets.
	for _, o := range []harmony.Offset{4, 7} {
		c, err := reg.Ensure(context.Background(), o, rec)
		if err != nil {
			t.Fatalf("Ensure(%s) after DisposeAll: %v", o, err)
		}
		if !c.Loaded() {
			t.Errorf("recreated chain %s should be loaded", o)
		}
	}
	if got := dev.PlayerCount(); got != 4 {
		t.Errorf("players created = %d, want 4", got)
	}
}

func TestRegistry_ChainsSnapshot(t *testing.T) {
	t.Parallel()
	reg := harmony.NewRegistry(mock.NewDevice(), harmony.ChainParams{WindowMs: 40}, nil)
	rec := testRecording(t)
	for _, o := range []harmony.Offset{-2, 0, 5} {
		if _, err := reg.Ensure(context.Background(), o, rec); err != nil {
			t.Fatalf("Ensure(%s): %v", o, err)
		}
	}

	if got := len(reg.Chains()); got != 3 {
		t.Errorf("Chains() length = %d, want 3", got)
	}
}
