package dbopen_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/ingestkit/dbopen"
)

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "test.db")
	db, err := dbopen.Open(context.Background(), path,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema("CREATE TABLE IF NOT EXISTS t (id INTEGER PRIMARY KEY, v TEXT)"),
	)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" && mode != "memory" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}

	if _, err := db.Exec("INSERT INTO t (v) VALUES ('x')"); err != nil {
		t.Fatalf("insert into schema table: %v", err)
	}
}

func TestOpenMemory(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema("CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)"))

	if _, err := db.Exec("INSERT INTO kv (k, v) VALUES ('a', '1')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var v string
	if err := db.QueryRow("SELECT v FROM kv WHERE k = 'a'").Scan(&v); err != nil {
		t.Fatalf("select: %v", err)
	}
	if v != "1" {
		t.Errorf("v = %q, want 1", v)
	}
}

func TestRunTx(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema("CREATE TABLE n (v INTEGER)"))

	err := dbopen.RunTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO n (v) VALUES (1)")
		return err
	})
	if err != nil {
		t.Fatalf("RunTx: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM n").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestRunTxRollsBack(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema("CREATE TABLE n (v INTEGER)"))

	boom := errors.New("boom")
	err := dbopen.RunTx(context.Background(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO n (v) VALUES (1)"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunTx error = %v, want boom", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM n").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 after rollback", count)
	}
}

func TestIsBusy(t *testing.T) {
	if dbopen.IsBusy(nil) {
		t.Error("IsBusy(nil) = true")
	}
	if !dbopen.IsBusy(errors.New("SQLITE_BUSY (5): database is locked")) {
		t.Error("IsBusy should match SQLITE_BUSY")
	}
	if dbopen.IsBusy(errors.New("syntax error")) {
		t.Error("IsBusy should not match unrelated errors")
	}
}
