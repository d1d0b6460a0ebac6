package harmony_test

import (
	"slices"
	"testing"

	"github.com/bli0428/vocalharmony/internal/harmony"
)

func TestNewSelection_ContainsOnlyUnison(t *testing.T) {
	t.Parallel()
	s := harmony.NewSelection()

	if !s.Active(harmony.Unison) {
		t.Error("fresh selection should contain the unison offset")
	}
	if got := s.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
	if got := s.Offsets(); !slices.Equal(got, []harmony.Offset{0}) {
		t.Errorf("Offsets() = %v, want [0]", got)
	}
}

func TestSelection_Toggle(t *testing.T) {
	t.Parallel()
	s := harmony.NewSelection()

	if active := s.Toggle(7); !active {
		t.Error("Toggle(+7) should activate the offset")
	}
	if !s.Active(7) {
		t.Error("+7 should be active after toggle")
	}

	if active := s.Toggle(7); active {
		t.Error("second Toggle(+7) should deactivate the offset")
	}
	if s.Active(7) {
		t.Error("+7 should be inactive after double toggle")
	}
}

func TestSelection_ToggleIsItsOwnInverse(t *testing.T) {
	t.Parallel()
	s := harmony.NewSelection()
	s.Toggle(-5)
	s.Toggle(4)
	before := s.Offsets()

	for _, o := range []harmony.Offset{-12, 0, 3, 12} {
		s.Toggle(o)
		s.Toggle(o)
	}

	if after := s.Offsets(); !slices.Equal(before, after) {
		t.Errorf("membership changed after paired toggles: before %v, after %v", before, after)
	}
}

func TestSelection_OffsetsSorted(t *testing.T) {
	t.Parallel()
	s := harmony.NewSelection()
	s.Toggle(12)
	s.Toggle(-12)
	s.Toggle(4)

	want := []harmony.Offset{-12, 0, 4, 12}
	if got := s.Offsets(); !slices.Equal(got, want) {
		t.Errorf("Offsets() = %v, want %v", got, want)
	}
}

func TestSelection_OffsetsIsSnapshot(t *testing.T) {
	t.Parallel()
	s := harmony.NewSelection()
	snap := s.Offsets()
	s.Toggle(3)

	if len(snap) != 1 {
		t.Errorf("snapshot changed after later toggle: %v", snap)
	}
}

func TestSelection_ToggleUnisonOff(t *testing.T) {
	t.Parallel()
	s := harmony.NewSelection()

	if active := s.Toggle(harmony.Unison); active {
		t.Error("toggling unison off should report inactive")
	}
	if got := s.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}
