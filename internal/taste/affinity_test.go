package taste

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAffinityFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "affinity.yaml")
	data := []byte("Rock: [Metal, \" Punk \"]\nshoegaze: [dream pop]\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadAffinityFile(path)
	if err != nil {
		t.Fatalf("LoadAffinityFile: %v", err)
	}

	got := table.Related("ROCK")
	if len(got) != 2 || got[0] != "metal" || got[1] != "punk" {
		t.Errorf("Related(rock) = %v, want lower-cased trimmed entries", got)
	}
	if related := table.Related("shoegaze"); len(related) != 1 || related[0] != "dream pop" {
		t.Errorf("Related(shoegaze) = %v", related)
	}
}

func TestLoadAffinityFileMissing(t *testing.T) {
	table, err := LoadAffinityFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadAffinityFile: %v", err)
	}
	if table != nil {
		t.Errorf("table = %v, want nil for a missing file", table)
	}
}

func TestLoadAffinityFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "affinity.yaml")
	if err := os.WriteFile(path, []byte("rock: {not: a list}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAffinityFile(path); err == nil {
		t.Error("expected an error for malformed YAML")
	}
}
