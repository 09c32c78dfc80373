package migrate

import (
	"errors"
	"io/fs"
	"sort"
	"strings"
	"testing"
	"testing/fstest"

	"poolfi/backend/internal/db"
)

func TestRun_EmptyDSN(t *testing.T) {
	for _, dsn := range []string{"", "   "} {
		err := Run(dsn, DirectionUp)
		if err == nil || !strings.Contains(err.Error(), "DATABASE_URL is not set") {
			t.Errorf("Run(%q) err = %v, want DATABASE_URL error", dsn, err)
		}
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	for _, direction := range []string{"", "invalid", "both", "UP", "Down"} {
		err := Run("postgres://localhost/test", direction)
		if err == nil || !strings.Contains(err.Error(), "direction must be up or down") {
			t.Errorf("Run(direction %q) err = %v, want direction error", direction, err)
		}
	}
}

func TestRun_InvalidDSN(t *testing.T) {
	for _, dsn := range []string{"invalid-dsn", "postgres://localhost with spaces/test"} {
		if err := Run(dsn, DirectionUp); err == nil {
			t.Errorf("Run with invalid DSN %q should return error", dsn)
		}
	}
}

func TestRun_MissingMigrationsDir(t *testing.T) {
	err := run(fstest.MapFS{}, "postgres://localhost/test", DirectionUp)
	if err == nil || !strings.HasPrefix(err.Error(), "migrate source:") {
		t.Errorf("err = %v, want migrate source error", err)
	}
}

func TestVersion_EmptyDSN(t *testing.T) {
	if _, _, err := Version(""); err == nil {
		t.Fatal("Version with empty DSN should return error")
	}
}

func TestErrNoChange(t *testing.T) {
	if ErrNoChange == nil {
		t.Fatal("ErrNoChange should not be nil")
	}
	if errors.Is(ErrNoChange, errors.New("no change")) {
		t.Error("ErrNoChange should be a distinct sentinel")
	}
}

func TestMigrationFS_PairsUpAndDown(t *testing.T) {
	names, err := fs.Glob(db.MigrationFS, "migrations/*.sql")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(names) == 0 {
		t.Fatal("no migrations embedded")
	}
	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, n := range names {
		switch {
		case strings.HasSuffix(n, ".up.sql"):
			ups[strings.TrimSuffix(n, ".up.sql")] = true
		case strings.HasSuffix(n, ".down.sql"):
			downs[strings.TrimSuffix(n, ".down.sql")] = true
		default:
			t.Errorf("migration %s has no direction suffix", n)
		}
	}
	var missing []string
	for base := range ups {
		if !downs[base] {
			missing = append(missing, base)
		}
	}
	sort.Strings(missing)
	if len(missing) > 0 || len(ups) != len(downs) {
		t.Errorf("unpaired migrations: %v (up=%d down=%d)", missing, len(ups), len(downs))
	}
	for _, table := range []string{"users", "access_pools", "audit_logs"} {
		found := false
		for _, n := range names {
			if strings.Contains(n, table) {
				found = true
			}
		}
		if !found {
			t.Errorf("no migration creates %s", table)
		}
	}
}
