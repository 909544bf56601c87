package store

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

func TestMigrationsHaveMatchingUpAndDownFiles(t *testing.T) {
	migrationsDir := filepath.Join("..", "..", "db", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	pattern := regexp.MustCompile(`^(\d+)_.*\.(up|down)\.sql$`)
	byVersion := map[string]map[string]bool{}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		match := pattern.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		version := match[1]
		direction := match[2]
		if byVersion[version] == nil {
			byVersion[version] = map[string]bool{}
		}
		if byVersion[version][direction] {
			t.Fatalf("duplicate %s migration file for version %s", direction, version)
		}
		byVersion[version][direction] = true
	}

	if len(byVersion) == 0 {
		t.Fatal("no migrations discovered")
	}

	for version, dirs := range byVersion {
		if !dirs["up"] || !dirs["down"] {
			t.Fatalf("version %s must include both up and down files", version)
		}
	}
}

func TestInitMigrationCoversStoreTables(t *testing.T) {
	migrationsDir := filepath.Join("..", "..", "db", "migrations")
	up, err := os.ReadFile(filepath.Join(migrationsDir, "0001_init.up.sql"))
	if err != nil {
		t.Fatalf("read up migration: %v", err)
	}
	down, err := os.ReadFile(filepath.Join(migrationsDir, "0001_init.down.sql"))
	if err != nil {
		t.Fatalf("read down migration: %v", err)
	}

	for _, table := range []string{"plans", "plan_groups", "group_grids", "problem_trees", "problem_topics"} {
		if !regexp.MustCompile(`CREATE TABLE IF NOT EXISTS ` + table + ` \(`).Match(up) {
			t.Errorf("up migration does not create %s", table)
		}
		if !regexp.MustCompile(`DROP TABLE IF EXISTS ` + table + `;`).Match(down) {
			t.Errorf("down migration does not drop %s", table)
		}
	}
}
