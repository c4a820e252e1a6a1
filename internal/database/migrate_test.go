package database

import "testing"

// TestMigrationURL проверяет замену схемы DSN для мигратора.
func TestMigrationURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/db?sslmode=disable":   "pgx5://u:p@localhost:5432/db?sslmode=disable",
		"postgresql://u:p@localhost:5432/db?sslmode=disable": "pgx5://u:p@localhost:5432/db?sslmode=disable",
		"pgx5://already": "pgx5://already",
	}

	for in, want := range cases {
		if got := migrationURL(in); got != want {
			t.Fatalf("migrationURL(%q): expected %q, got %q", in, want, got)
		}
	}
}

// TestMigrationsEmbedded проверяет, что миграции попали в бинарник.
func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected embedded migrations")
	}
}
