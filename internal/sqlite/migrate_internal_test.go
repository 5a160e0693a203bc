package sqlite

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/Manty2503/demo-final/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func TestDatabase_migrate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name              string
		schemaDefinitions []string
		testQueries       []string
		wantErr           bool
	}{
		{
			name:              "empty schema",
			schemaDefinitions: []string{""},
			testQueries:       []string{"SELECT COUNT(*) FROM sqlite_schema"},
			wantErr:           false,
		},
		{
			name:              "create table",
			schemaDefinitions: []string{"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)"},
			testQueries: []string{
				"INSERT INTO test (name) VALUES ('test')",
				"SELECT COUNT(*) FROM test",
			},
			wantErr: false,
		},
		{
			name: "drop table",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
				"", // drop table
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     true,
		},
		{
			name: "add column",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     false,
		},
		{
			name: "remove column",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY)",
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     true,
		},
		{
			name: "create index",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (name)",
			},
			testQueries: []string{"DROP INDEX test_name"},
			wantErr:     false,
		},
		{
			name: "drop index",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (name)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
			},
			testQueries: []string{"DROP INDEX test_name"},
			wantErr:     true,
		},
		{
			name: "update index",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (name)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (id, name)",
			},
			testQueries: []string{"DROP INDEX test_name"},
			wantErr:     false,
		},
		{
			name: "keeps data when adding column",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
				"INSERT INTO test (name) VALUES ('kept')",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT, topic TEXT)",
			},
			testQueries: []string{"SELECT 1 FROM test WHERE name = 'kept' AND topic IS NULL"},
			wantErr:     false,
		},
		{
			name: "create trigger",
			schemaDefinitions: []string{
				`CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT );
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT RAISE ( FAIL, 'fail' ); END;`,
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     true,
		},
		{
			name: "delete trigger",
			schemaDefinitions: []string{
				`CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT );
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT RAISE ( FAIL, 'fail' ); END;`,
				"CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT )",
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     false,
		},
		{
			name: "update trigger",
			schemaDefinitions: []string{
				`CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT );
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT RAISE ( FAIL, 'fail' ); END;`,
				`CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT );
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT 1; END;`,
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			logger := testhelpers.NewLogger(io.Discard)
			db, err := connect(":memory:", logger)
			require.NoError(t, err)
			t.Cleanup(func() { require.NoError(t, db.Close()) })
			for _, schemaDefinition := range tt.schemaDefinitions {
				// Plain statements seed data between migrations.
				if strings.HasPrefix(schemaDefinition, "INSERT") {
					_, err = db.ReadWrite.ExecContext(ctx, schemaDefinition)
					require.NoError(t, err)
					continue
				}
				logger.LogAttrs(ctx, slog.LevelInfo, "migrating", slog.String("schema", schemaDefinition))
				err = db.migrate(ctx, schemaDefinition)
				require.NoError(t, err)
			}
			for _, query := range tt.testQueries {
				logger.LogAttrs(ctx, slog.LevelInfo, "executing", slog.String("query", query))
				if strings.HasPrefix(query, "SELECT") {
					var one int
					err = db.ReadWrite.QueryRowContext(ctx, query).Scan(&one)
				} else {
					_, err = db.ReadWrite.ExecContext(ctx, query)
				}
				if tt.wantErr {
					require.Error(t, err)
				} else {
					require.NoError(t, err)
				}
			}
		})
	}
}

func TestDatabase_migrateIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, err := connect(":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	require.NoError(t, db.migrate(ctx, schemaDefinition))
	_, err = db.ReadWrite.ExecContext(ctx, `INSERT INTO interviews (id, candidate_id, topic, questions, answers)
VALUES ('00000000-0000-0000-0000-000000000001', 'candidate', 'Go', '["q"]', '[]')`)
	require.NoError(t, err)

	var before string
	require.NoError(t, db.ReadWrite.QueryRowContext(ctx,
		`SELECT sql FROM sqlite_schema WHERE name = 'interviews'`).Scan(&before))
	require.NoError(t, db.migrate(ctx, schemaDefinition))
	var after string
	require.NoError(t, db.ReadWrite.QueryRowContext(ctx,
		`SELECT sql FROM sqlite_schema WHERE name = 'interviews'`).Scan(&after))
	require.Equal(t, before, after)

	var count int
	require.NoError(t, db.ReadOnly.QueryRowContext(ctx, `SELECT COUNT(*) FROM interviews`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestNewDatabase(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	db, err := NewDatabase(ctx, ":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	_, err = db.ReadOnly.ExecContext(ctx, `DELETE FROM interviews`)
	require.Error(t, err, "read-only pool must reject writes")
	require.NoError(t, db.Optimize(ctx))
}
