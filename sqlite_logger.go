package crcsim

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteLogger is a DataLogger that writes every EventRecord as one row of
// a single "events" table in a SQLite database: crcsim has a single
// record stream, so one table suffices.
type SQLiteLogger struct {
	path string
	db   *sql.DB
	tx   *sql.Tx
	stmt *sql.Stmt
}

// NewSQLiteLogger returns a SQLiteLogger that will write to path.
func NewSQLiteLogger(path string) *SQLiteLogger {
	return &SQLiteLogger{path: path}
}

// OpenSQLiteDB opens (creating if absent) the SQLite database at path.
func OpenSQLiteDB(path string) (*sql.DB, error) {
	return sql.Open("sqlite3", path)
}

const createEventsTable = `
create table if not exists events (
	id integer not null primary key,
	run_id text,
	record_type text,
	person_id text,
	lesion_id integer,
	has_lesion_id integer,
	time real,
	message text,
	old_state text,
	new_state text,
	test_name text,
	routine_test text,
	role text,
	stage text
);`

const insertEventStmt = `insert into events
	(run_id, record_type, person_id, lesion_id, has_lesion_id, time, message,
	 old_state, new_state, test_name, routine_test, role, stage)
	values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Open creates the database file and its events table, then begins the
// first transaction: rows accumulate in that transaction until Commit.
func (l *SQLiteLogger) Open() error {
	db, err := OpenSQLiteDB(l.path)
	if err != nil {
		return err
	}
	if _, err := db.Exec(createEventsTable); err != nil {
		db.Close()
		return fmt.Errorf("%q: %s", err, createEventsTable)
	}
	l.db = db
	return l.beginTx()
}

func (l *SQLiteLogger) beginTx() error {
	tx, err := l.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(insertEventStmt)
	if err != nil {
		return err
	}
	l.tx = tx
	l.stmt = stmt
	return nil
}

// WriteRecord inserts one row into the open transaction.
func (l *SQLiteLogger) WriteRecord(r EventRecord) error {
	_, err := l.stmt.Exec(
		r.RunID,
		r.RecordType.String(),
		r.PersonID,
		r.LesionID,
		r.HasLesionID,
		r.Time,
		r.Message,
		r.OldState,
		r.NewState,
		r.TestName,
		r.RoutineTest,
		r.Role.String(),
		r.Stage,
	)
	return err
}

// Commit commits the current individual's transaction and opens a fresh
// one, matching the driver contract's "commit after each individual" rule.
func (l *SQLiteLogger) Commit() error {
	l.stmt.Close()
	if err := l.tx.Commit(); err != nil {
		return err
	}
	return l.beginTx()
}

// Close commits any pending rows and closes the database.
func (l *SQLiteLogger) Close() error {
	l.stmt.Close()
	if err := l.tx.Commit(); err != nil {
		l.db.Close()
		return err
	}
	return l.db.Close()
}
