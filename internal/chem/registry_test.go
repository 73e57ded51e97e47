package chem

import (
	"errors"
	"slices"
	"testing"
)

func TestRegistry_TerminalDetection(t *testing.T) {
	reg := mustRegistry(t, mustReaction(t, []string{"A", "B"}, []string{"C"}, 1))

	if reg.HasReactants("C") {
		t.Error("Expected C to be terminal")
	}
	if !reg.HasReactants("A") {
		t.Error("Expected A to have reactions")
	}
	if !reg.HasReactants("B") {
		t.Error("Expected B to have reactions")
	}
	if reg.HasReactants("UNKNOWN") {
		t.Error("Expected an unknown formula to be terminal")
	}
}

func TestRegistry_DuplicatePhotolysis(t *testing.T) {
	reg := NewRegistry(nil)
	err := reg.Load([]ReactionDescription{
		mustReaction(t, []string{"ACETONE", "UV"}, []string{"CH3CO*", "CH3*"}, 1),
		mustReaction(t, []string{"uv", "ACETONE"}, []string{"CH3COCH2*"}, 1),
	})
	if !errors.Is(err, ErrDuplicatePhotolysis) {
		t.Fatalf("Expected ErrDuplicatePhotolysis, got %v", err)
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected *ConfigError, got %T", err)
	}
	if !errors.Is(reg.EnsureLoaded(), ErrNotLoaded) {
		t.Error("Expected registry to be unloaded after a failed Load")
	}
}

func TestRegistry_Classification(t *testing.T) {
	reg := mustRegistry(t,
		mustReaction(t, []string{"H2O2", "UV"}, []string{"2HO*"}, 1),
		mustReaction(t, []string{"HO2*"}, []string{"H+", "O2*-"}, 1),
		mustReaction(t, []string{"HO*", "H2O2"}, []string{"HO2*", "H2O"}, 2.7e7),
		mustReaction(t, []string{"HO*", "HO*"}, []string{"H2O2"}, 5.5e9),
	)

	if got := reg.QueryPhotolysis("H2O2"); len(got) != 1 || len(got[0].Products()) != 2 {
		t.Errorf("Expected one photolysis for H2O2 with 2 products, got %v", got)
	}
	if got := reg.QueryUnimolecular("HO2*"); len(got) != 1 {
		t.Errorf("Expected one unimolecular for HO2*, got %d", len(got))
	}
	if got := reg.QueryBimolecular("H2O2"); len(got) != 1 {
		t.Errorf("Expected H2O2 in one bimolecular reaction, got %d", len(got))
	}
	// filed under each distinct reactant, so HO* + HO* is listed once
	if got := reg.QueryBimolecular("HO*"); len(got) != 2 {
		t.Errorf("Expected HO* in two bimolecular reactions, got %d", len(got))
	}
	if got := reg.QueryUnimolecular("H2O2"); got != nil && len(got) != 0 {
		t.Errorf("Expected H2O2 not to key the unimolecular class, got %v", got)
	}
	if got := reg.QueryPhotolysis("HO*"); got != nil {
		t.Errorf("Expected no photolysis for HO*, got %v", got)
	}

	counts := reg.Counts()
	if counts[Photolysis] != 1 || counts[Unimolecular] != 1 || counts[Bimolecular] != 2 {
		t.Errorf("Unexpected class counts: %v", counts)
	}
}

func TestRegistry_QueriesReturnCopies(t *testing.T) {
	reg := mustRegistry(t,
		mustReaction(t, []string{"A"}, []string{"B"}, 1),
		mustReaction(t, []string{"A"}, []string{"C"}, 1),
	)
	got := reg.QueryUnimolecular("A")
	got[0] = mustReaction(t, []string{"Z"}, []string{"Z"}, 1)
	if reg.QueryUnimolecular("A")[0].Reactants()[0] != "A" {
		t.Error("Expected registry contents to be unaffected by caller mutation")
	}
}

func TestRegistry_InvalidReactions(t *testing.T) {
	tests := []struct {
		name      string
		reactants []string
	}{
		{"lone UV", []string{"UV"}},
		{"three reactants", []string{"A", "B", "C"}},
		{"two UV", []string{"UV", "uv"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry(nil)
			err := reg.Load([]ReactionDescription{mustReaction(t, tt.reactants, []string{"P"}, 1)})
			if !errors.Is(err, ErrInvalidReaction) {
				t.Errorf("Expected ErrInvalidReaction, got %v", err)
			}
		})
	}
}

func TestRegistry_EnsureLoaded(t *testing.T) {
	reg := NewRegistry(nil)
	if !errors.Is(reg.EnsureLoaded(), ErrNotLoaded) {
		t.Error("Expected ErrNotLoaded before Load")
	}
	if err := reg.Load(nil); err != nil {
		t.Fatalf("Load(nil) failed: %v", err)
	}
	if err := reg.EnsureLoaded(); err != nil {
		t.Errorf("Expected loaded registry, got %v", err)
	}
	reg.Clear()
	if !errors.Is(reg.EnsureLoaded(), ErrNotLoaded) {
		t.Error("Expected ErrNotLoaded after Clear")
	}
}

func TestRegistry_ReloadClearsMemo(t *testing.T) {
	reg := mustRegistry(t, mustReaction(t, []string{"A"}, []string{"B"}, 1))
	if reg.HasReactants("B") {
		t.Fatal("Expected B to be terminal in the first load")
	}

	if err := reg.Load([]ReactionDescription{mustReaction(t, []string{"B"}, []string{"C"}, 1)}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reg.HasReactants("B") {
		t.Error("Expected B to be reactive after reload")
	}
	if reg.HasReactants("A") {
		t.Error("Expected A to be unknown after reload")
	}
}

func TestRegistry_EntitiesAndCatalog(t *testing.T) {
	reg := mustRegistry(t,
		mustReaction(t, []string{"B", "UV"}, []string{"A"}, 1),
		mustReaction(t, []string{"C"}, []string{"2D"}, 1),
	)
	if got, want := reg.Entities(), []string{"A", "B", "C", "D"}; !slices.Equal(got, want) {
		t.Errorf("Expected entities %v, got %v", want, got)
	}
	if _, ok := reg.Catalog().ID("UV"); ok {
		t.Error("Expected UV not to be interned")
	}
	idB, _ := reg.Catalog().ID("B")
	if reg.Catalog().Formula(idB) != "B" {
		t.Error("Expected catalog round trip for B")
	}
}
