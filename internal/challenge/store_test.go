package challenge

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewStoreLoadsEmbeddedChallenges(t *testing.T) {
	store, err := NewStore()
	if err != nil {
		t.Fatalf("Failed to load embedded challenges: %v", err)
	}

	ids := store.IDs()
	if len(ids) == 0 {
		t.Fatal("Expected at least one embedded challenge")
	}

	for _, id := range ids {
		c, ok := store.Get(id)
		if !ok {
			t.Errorf("IDs() returned %s but Get() missed", id)
		}
		if c.Title == "" {
			t.Errorf("Challenge %s has no title", id)
		}
		if len(c.TestCases) == 0 {
			t.Errorf("Challenge %s has no test cases", id)
		}
	}
}

func TestStoreGetUnknownID(t *testing.T) {
	store, err := NewStore()
	if err != nil {
		t.Fatalf("Failed to load embedded challenges: %v", err)
	}

	if _, ok := store.Get("no-such-challenge"); ok {
		t.Error("Expected lookup miss for unknown id")
	}
}

func TestNewStoreFromDir(t *testing.T) {
	dir := t.TempDir()
	challengeJSON := `{
		"title": "Echo",
		"difficulty": "easy",
		"description": "Print the input.",
		"hints": [],
		"testCases": [{"id": "1", "input": "hi", "expectedOutput": "hi"}],
		"initialCode": ""
	}`
	if err := os.WriteFile(filepath.Join(dir, "echo.json"), []byte(challengeJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	// Non-JSON files are ignored
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("notes"), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := NewStoreFromDir(dir)
	if err != nil {
		t.Fatalf("Failed to load challenges from dir: %v", err)
	}

	// The id falls back to the file name when the definition omits it
	c, ok := store.Get("echo")
	if !ok {
		t.Fatal("Expected challenge keyed by file name")
	}
	if c.Title != "Echo" {
		t.Errorf("Expected title Echo, got %s", c.Title)
	}
}

func TestNewStoreFromDirEmpty(t *testing.T) {
	if _, err := NewStoreFromDir(t.TempDir()); err == nil {
		t.Error("Expected error for directory without challenges")
	}
}

func TestPublicWithholdsSolutionsAndHiddenCases(t *testing.T) {
	c := Challenge{
		ID:        "c1",
		Solutions: []string{"int main() { return 0; }"},
		TestCases: []TestCase{
			{ID: "1", Input: "a", ExpectedOutput: "b"},
			{ID: "2", Input: "secret-in", ExpectedOutput: "secret-out", Hidden: true},
		},
	}

	pub := c.Public()

	if pub.Solutions != nil {
		t.Error("Expected solutions to be withheld")
	}
	if len(pub.TestCases) != 2 {
		t.Fatalf("Expected both test cases listed, got %d", len(pub.TestCases))
	}
	if pub.TestCases[0].Input != "a" || pub.TestCases[0].ExpectedOutput != "b" {
		t.Error("Visible test case should be intact")
	}
	hidden := pub.TestCases[1]
	if !hidden.Hidden || hidden.ID != "2" {
		t.Error("Hidden test case should keep id and flag")
	}
	if hidden.Input != "" || hidden.ExpectedOutput != "" {
		t.Error("Hidden test case content should be stripped")
	}

	// The original is untouched
	if c.TestCases[1].Input != "secret-in" || c.Solutions == nil {
		t.Error("Public() must not mutate the source challenge")
	}
}
