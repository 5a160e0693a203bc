package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/random"
)

// migrate ensures that the db schema matches the target schema defined in schema.sql.
//
// We employ a very simple declarative schema migration that:
//
// 1. Deletes deleted tables,
// 2. Creates new tables,
// 3. Migrates changed tables using 12-step schema migration https://www.sqlite.org/lang_altertable.html#otheralter,
// 4. Recreates indexes and triggers whose definition changed.
//
// Inspired by https://david.rothlis.net/declarative-schema-migration-for-sqlite/
func (db *Database) migrate(ctx context.Context, schemaDefinition string) error {
	// ATTACH, DETACH and the foreign key pragma do not work inside a transaction, so the whole migration runs on one
	// dedicated connection.
	conn, err := db.ReadWrite.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "acquire connection")
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to release connection",
				errors.SlogError(errors.Wrap(closeErr, "close connection")))
		}
	}()

	// Step 1: Disable foreign key validation temporarily.
	if _, err = conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return errors.Wrap(err, "disable foreign key validation")
	}
	// Step 12: Re-enable foreign key validation.
	defer func() {
		if _, fkErr := conn.ExecContext(context.WithoutCancel(ctx), "PRAGMA foreign_keys = ON"); fkErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to re-enable foreign key validation",
				errors.SlogError(errors.Wrap(fkErr, "enable foreign keys")))
		}
	}()
	// Renaming a table must not rewrite references to it in other tables.
	if _, err = conn.ExecContext(ctx, "PRAGMA legacy_alter_table = ON"); err != nil {
		return errors.Wrap(err, "enable legacy alter table")
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "PRAGMA legacy_alter_table = OFF")
	}()

	// Create schema against a temporary database so that we know what has changed.
	var (
		randomID     string
		dbNameLength uint = 20
	)
	if randomID, err = random.Letters(dbNameLength); err != nil {
		return errors.Wrap(err, "generate random ID")
	}
	schemaTargetDataSourceName := fmt.Sprintf("file:%s?mode=memory&cache=shared", randomID)
	schemaTargetDatabase, err := sql.Open("sqlite3", schemaTargetDataSourceName)
	if err != nil {
		return errors.Wrap(err, "open schema target database")
	}
	defer func() {
		if closeErr := schemaTargetDatabase.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close schema target database",
				errors.SlogError(errors.Wrap(closeErr, "close schema target database")))
		}
	}()
	if _, err = schemaTargetDatabase.ExecContext(ctx, schemaDefinition); err != nil {
		return errors.Wrap(err, "migrate schema target database")
	}
	if _, err = conn.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget", schemaTargetDataSourceName); err != nil {
		return errors.Wrap(err, "attach schema target database")
	}
	defer func() {
		if _, detachErr := conn.ExecContext(context.WithoutCancel(ctx), "DETACH DATABASE schemaTarget"); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to detach schema target database",
				errors.SlogError(errors.Wrap(detachErr, "detach")))
		}
	}()

	// Step 2: Start transaction.
	var tx *sql.Tx
	if tx, err = conn.BeginTx(ctx, nil); err != nil {
		return errors.Wrap(err, "start transaction")
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction",
				errors.SlogError(errors.Wrap(rollbackErr, "rollback")))
		}
	}()

	// Step 3-7 migrate tables.
	if err = db.migrateTables(ctx, tx); err != nil {
		return errors.Wrap(err, "migrate tables")
	}

	// Step 8: Recreate indexes and triggers associated with table if needed.
	for _, objectType := range []string{"index", "trigger"} {
		if err = db.migrateObjects(ctx, tx, objectType); err != nil {
			return errors.Wrap(err, "migrate schema objects", slog.String("type", objectType))
		}
	}

	// Step 9: Views are not used.
	// Step 10: Check foreign key constraints.
	if err = checkForeignKeys(ctx, tx); err != nil {
		return errors.Wrap(err, "foreign key check")
	}

	// Step 11: Commit transaction from step 2.
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	// Step 12: is in defer above.

	return nil
}

// migrateTables ensures table schema is synchronized between databases.
func (db *Database) migrateTables(ctx context.Context, tx *sql.Tx) error {
	// Step 3: Remember schema (also includes trivial creation and deletion of tables).
	var err error

	// Drop deleted tables.
	var deletedTables []string
	if deletedTables, err = db.queryDeletedTables(ctx, tx); err != nil {
		return errors.Wrap(err, "query deleted tables")
	}
	for _, table := range deletedTables {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping table", slog.String("table", table))
		if _, err = tx.ExecContext(ctx, "DROP TABLE "+quoteIdentifier(table)); err != nil {
			return errors.Wrap(err, "drop table", slog.String("table", table))
		}
	}

	// Create new tables.
	var newTableSQLs []string
	if newTableSQLs, err = db.queryNewTableSQLs(ctx, tx); err != nil {
		return errors.Wrap(err, "query new table SQLs")
	}
	for _, newTableSQL := range newTableSQLs {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "creating table", slog.String("query", newTableSQL))
		if _, err = tx.ExecContext(ctx, newTableSQL); err != nil {
			return errors.Wrap(err, "create table")
		}
	}

	// Identify tables with changed schema and continue the 12-step schema migration with them.
	var changedTables []changedTable
	if changedTables, err = db.queryChangedTables(ctx, tx); err != nil {
		return errors.Wrap(err, "query changed tables")
	}

	for _, table := range changedTables {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "migrating table",
			slog.String("table", table.name),
			slog.String("current_sql", table.currentSQL),
			slog.String("new_sql", table.newSQL))

		var commonColumns []string
		if commonColumns, err = db.queryCommonColumns(ctx, tx, table.name); err != nil {
			return errors.Wrap(err, "query common columns")
		}

		// Step 4: Move the old table out of the way and create the new one with the verbatim target SQL so that the
		// stored definitions compare equal on the next start.
		tempName := quoteIdentifier(table.name + "_migration_temp")
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s",
			quoteIdentifier(table.name), tempName)); err != nil {
			return errors.Wrap(err, "rename old table")
		}
		if _, err = tx.ExecContext(ctx, table.newSQL); err != nil {
			return errors.Wrap(err, "create new table", slog.String("query", table.newSQL))
		}

		// Step 5: Copy common columns between tables.
		if len(commonColumns) > 0 {
			common := strings.Join(commonColumns, ", ")
			copySQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s;", //nolint: gosec // we trust the query.
				quoteIdentifier(table.name), common, common, tempName)
			db.logger.LogAttrs(ctx, slog.LevelInfo, "copying data", slog.String("query", copySQL))
			if _, err = tx.ExecContext(ctx, copySQL); err != nil {
				return errors.Wrap(err, "copy data")
			}
		}

		// Step 6: Drop the old table. Step 7 happened in step 4.
		if _, err = tx.ExecContext(ctx, "DROP TABLE "+tempName); err != nil {
			return errors.Wrap(err, "drop old table")
		}
	}
	return nil
}

// migrateObjects drops indexes or triggers that were removed or changed and creates the ones that are missing.
func (db *Database) migrateObjects(ctx context.Context, tx *sql.Tx, objectType string) error {
	stale, err := db.queryStringSlice(ctx, tx, `SELECT current.name
FROM sqlite_schema AS current
LEFT JOIN schemaTarget.sqlite_schema AS target ON current.name = target.name AND current.type = target.type
WHERE current.type = :type AND current.sql IS NOT NULL AND (target.sql IS NULL OR current.sql <> target.sql);`,
		sql.Named("type", objectType))
	if err != nil {
		return errors.Wrap(err, "query stale objects")
	}
	for _, name := range stale {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping schema object",
			slog.String("type", objectType), slog.String("name", name))
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP %s IF EXISTS %s",
			strings.ToUpper(objectType), quoteIdentifier(name))); err != nil {
			return errors.Wrap(err, "drop object", slog.String("name", name))
		}
	}

	missing, err := db.queryStringSlice(ctx, tx, `SELECT target.sql
FROM schemaTarget.sqlite_schema AS target
LEFT JOIN sqlite_schema AS current ON current.name = target.name AND current.type = target.type
WHERE target.type = :type AND target.sql IS NOT NULL AND current.name IS NULL;`,
		sql.Named("type", objectType))
	if err != nil {
		return errors.Wrap(err, "query missing objects")
	}
	for _, query := range missing {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "creating schema object", slog.String("query", query))
		if _, err = tx.ExecContext(ctx, query); err != nil {
			return errors.Wrap(err, "create object", slog.String("query", query))
		}
	}
	return nil
}

// queryDeletedTables returns a list of tables that are present in the current schema but not in the target schema.
func (db *Database) queryDeletedTables(ctx context.Context, tx *sql.Tx) ([]string, error) {
	deletedTables, err := db.queryStringSlice(ctx, tx, `SELECT current.name AS deleted_table
FROM sqlite_schema AS current
LEFT JOIN schemaTarget.sqlite_schema AS target ON current.name=target.name AND current.type=target.type
WHERE current.type = 'table' AND target.type IS NULL AND current.name NOT LIKE 'sqlite_%';`)
	if err != nil {
		return nil, errors.Wrap(err, "query string slice")
	}
	return deletedTables, nil
}

// queryNewTableSQLs returns a list of SQL statements to create new tables that are present in the target schema but not
// in the current schema.
func (db *Database) queryNewTableSQLs(ctx context.Context, tx *sql.Tx) ([]string, error) {
	newTableSQLs, err := db.queryStringSlice(ctx, tx, `SELECT target.sql AS sql
FROM schemaTarget.sqlite_schema AS target
LEFT JOIN sqlite_schema AS current ON current.name=target.name AND current.type=target.type
WHERE target.type = 'table' AND current.type IS NULL AND target.name NOT LIKE 'sqlite_%';`)
	if err != nil {
		return nil, errors.Wrap(err, "query string slice")
	}
	return newTableSQLs, nil
}

func (db *Database) queryCommonColumns(ctx context.Context, tx *sql.Tx, table string) ([]string, error) {
	// We wrap the column names in with double quotes to handle column names that are SQLite keywords.
	commonColumns, err := db.queryStringSlice(ctx, tx, `SELECT '"' || target.name || '"'
FROM PRAGMA_TABLE_INFO(:table_name, 'main') AS current
JOIN PRAGMA_TABLE_INFO(:table_name, 'schemaTarget') AS target ON target.name = current.name;`,
		sql.Named("table_name", table))
	if err != nil {
		return nil, errors.Wrap(err, "query string slice")
	}
	return commonColumns, nil
}

// queryStringSlice returns a slice of strings from a query and its args.
//
// It is used to query a single column from a table.
func (db *Database) queryStringSlice(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	var (
		results []string
		rows    *sql.Rows
		err     error
	)
	if rows, err = tx.QueryContext(ctx, query, args...); err != nil {
		return nil, errors.Wrap(err, "query")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "could not close rows",
				errors.SlogError(errors.Wrap(closeErr, "close rows")))
		}
	}()
	for rows.Next() {
		var result string
		if err = rows.Scan(&result); err != nil {
			return nil, errors.Wrap(err, "scan table")
		}
		results = append(results, result)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return results, nil
}

type changedTable struct {
	name       string
	currentSQL string
	newSQL     string
}

// queryChangedTables returns a list of tables that have different schema in the current schema and the target schema.
func (db *Database) queryChangedTables(ctx context.Context, tx *sql.Tx) ([]changedTable, error) {
	var (
		changedTables []changedTable
		rows          *sql.Rows
		err           error
	)
	if rows, err = tx.QueryContext(ctx, `SELECT
    current.name AS changed_table,
    current.sql AS current_sql,
    target.sql AS new_sql
FROM sqlite_schema AS current
         JOIN schemaTarget.sqlite_schema AS target ON current.name=target.name AND current.type=target.type
WHERE current.type = 'table' AND current.name NOT LIKE 'sqlite_%' AND current.sql <> target.sql;
`); err != nil {
		return nil, errors.Wrap(err, "query")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "could not close rows",
				errors.SlogError(errors.Wrap(closeErr, "close rows")))
		}
	}()
	for rows.Next() {
		var result changedTable
		if err = rows.Scan(&result.name, &result.currentSQL, &result.newSQL); err != nil {
			return nil, errors.Wrap(err, "scan table")
		}
		changedTables = append(changedTables, result)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return changedTables, nil
}

// checkForeignKeys fails when any row references a missing parent.
func checkForeignKeys(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return errors.Wrap(err, "query")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		var (
			table  string
			rowID  sql.NullInt64
			parent string
			fkID   int
		)
		if err = rows.Scan(&table, &rowID, &parent, &fkID); err != nil {
			return errors.Wrap(err, "scan violation")
		}
		return errors.New("foreign key violation", slog.String("table", table), slog.String("parent", parent))
	}
	if err = rows.Err(); err != nil {
		return errors.Wrap(err, "rows error")
	}
	return nil
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
