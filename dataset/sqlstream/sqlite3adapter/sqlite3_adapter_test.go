package sqlite3adapter

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"testing"
)

type stubDriver struct {
	rows *stubRows
}

func (d *stubDriver) Open(name string) (driver.Conn, error) {
	return &stubConn{d.rows}, nil
}

type stubConn struct {
	rows *stubRows
}

func (c *stubConn) Prepare(query string) (driver.Stmt, error) {
	return &stubStmt{c.rows}, nil
}

func (c *stubConn) Close() error {
	return nil
}

func (c *stubConn) Begin() (driver.Tx, error) {
	return nil, fmt.Errorf("transactions are not supported")
}

type stubStmt struct {
	rows *stubRows
}

func (s *stubStmt) Close() error {
	return nil
}

func (s *stubStmt) NumInput() int {
	return 0
}

func (s *stubStmt) Exec(args []driver.Value) (driver.Result, error) {
	return nil, fmt.Errorf("exec is not supported")
}

func (s *stubStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.rows, nil
}

type stubRows struct {
	columns []string
	values  [][]driver.Value
	next    int
	closed  bool
}

func (r *stubRows) Columns() []string {
	return r.columns
}

func (r *stubRows) Close() error {
	r.closed = true
	return nil
}

func (r *stubRows) Next(dest []driver.Value) error {
	if r.next >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.next])
	r.next++
	return nil
}

var stub = &stubDriver{}

func init() {
	sql.Register("sqlite3adapterstub", stub)
}

func TestIterateOnExamplesClosesRowsOnError(t *testing.T) {
	rows := &stubRows{
		columns: []string{"x"},
		values: [][]driver.Value{
			{1.0},
			{2.0},
		},
	}
	stub.rows = rows
	db, err := sql.Open("sqlite3adapterstub", "")
	if err != nil {
		t.Fatalf("opening stub database: %v", err)
	}
	a := &adapter{db}

	err = a.IterateOnExamples(context.Background(), nil, []string{"x"}, func(i int, values map[string]interface{}) (bool, error) {
		return false, fmt.Errorf("rejecting example %d", i)
	})
	if err == nil {
		t.Fatal("expected the lambda error to be returned")
	}
	if !rows.closed {
		t.Error("rows were not closed after a lambda error")
	}
}
