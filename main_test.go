package main

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

type tableCounts struct {
	groups      int
	adlists     int
	memberships int
}

func runImport(t *testing.T, document string) (string, int) {
	t.Helper()
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "gravity.yaml")
	if err := os.WriteFile(configFile, []byte(document), 0600); err != nil {
		t.Fatal(err)
	}
	dbDir := filepath.Join(tmpDir, "pihole")
	code := run([]string{"-c", configFile, "-d", dbDir, "--log-file", filepath.Join(tmpDir, "gravityyaml.log")})
	return filepath.Join(dbDir, "gravity.db"), code
}

func countRows(t *testing.T, path string) tableCounts {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var c tableCounts
	for query, dest := range map[string]*int{
		`SELECT COUNT(*) FROM "group"`:         &c.groups,
		`SELECT COUNT(*) FROM adlist`:          &c.adlists,
		`SELECT COUNT(*) FROM adlist_by_group`: &c.memberships,
	} {
		if err := db.QueryRow(query).Scan(dest); err != nil {
			t.Fatalf("%s: %v", query, err)
		}
	}
	return c
}

func TestImportExamples(t *testing.T) {
	tests := []struct {
		name     string
		document string
		want     tableCounts
	}{
		{
			name: "group membership",
			document: `
groups:
  - name: Family
adlists:
  - url: http://a
    groups: [Family]
`,
			want: tableCounts{groups: 1, adlists: 1, memberships: 1},
		},
		{
			name: "default membership is implicit",
			document: `
adlists:
  - url: http://a
    groups: [Default]
`,
			want: tableCounts{groups: 0, adlists: 1, memberships: 0},
		},
		{
			name: "unknown group is skipped",
			document: `
adlists:
  - url: http://a
    groups: [Ghost]
`,
			want: tableCounts{groups: 0, adlists: 1, memberships: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbPath, code := runImport(t, tt.document)
			if code != 0 {
				t.Fatalf("run returned exit code %d", code)
			}
			if got := countRows(t, dbPath); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEmptyAdlistsLeavesDatabaseUntouched(t *testing.T) {
	dbPath, code := runImport(t, "groups:\n  - name: Family\nadlists: []\n")
	if code != 3 {
		t.Errorf("got exit code %d, want 3", code)
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Errorf("expected no database at %s", dbPath)
	}
}
