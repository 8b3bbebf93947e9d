package scenarios

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCases(t *testing.T) {
	files, err := filepath.Glob("testdata/*.yaml")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no cases found")
	}
	for _, f := range files {
		c, err := Load(f)
		if err != nil {
			t.Fatalf("load %s: %v", f, err)
		}
		t.Run(c.Name, func(t *testing.T) {
			RunCase(t, c)
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte(":"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatal("expected unmarshal error")
	}
	noWorkers := filepath.Join(dir, "zero.yaml")
	if err := os.WriteFile(noWorkers, []byte("name: zero\nworkers: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(noWorkers); err == nil {
		t.Fatal("expected workers error")
	}
}

func TestScriptedError(t *testing.T) {
	if scriptedError("infeasible").Error() != "lp infeasible" {
		t.Fatalf("unexpected message %q", scriptedError("infeasible"))
	}
	if scriptedError("error") == nil {
		t.Fatal("expected error")
	}
}
