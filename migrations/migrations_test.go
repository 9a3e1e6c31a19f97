package migrations

import "testing"

func TestNames_SortedAndEmbedded(t *testing.T) {
	names, err := Names()
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if len(names) == 0 {
		t.Fatal("expected at least one embedded migration")
	}
	if names[0] != "001_init.sql" {
		t.Errorf("expected 001_init.sql first, got %s", names[0])
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("migrations not sorted: %v", names)
		}
	}
}
