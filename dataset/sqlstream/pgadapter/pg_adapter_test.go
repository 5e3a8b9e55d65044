package pgadapter

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
	sql.Register("pgadapterstub", stub)
}

func stubAdapter(t *testing.T, rows *stubRows) *adapter {
	stub.rows = rows
	db, err := sql.Open("pgadapterstub", "")
	if err != nil {
		t.Fatalf("opening stub database: %v", err)
	}
	return &adapter{db}
}

func TestColumnName(t *testing.T) {
	a := &adapter{}
	if _, err := a.ColumnName("id"); err == nil {
		t.Error("reserved name id: expected an error")
	}
	if _, err := a.ColumnName(`co"lor`); err == nil {
		t.Error("name with a quote: expected an error")
	}
	column, err := a.ColumnName("color")
	if err != nil {
		t.Fatalf("validating feature name: %v", err)
	}
	if column != "color" {
		t.Errorf("column name: got %s, want color", column)
	}
}

func TestIterateOnExamples(t *testing.T) {
	rows := &stubRows{
		columns: []string{"color", "x"},
		values: [][]driver.Value{
			{"red", 1.5},
			{nil, 2.5},
		},
	}
	a := stubAdapter(t, rows)

	var got []map[string]interface{}
	err := a.IterateOnExamples(context.Background(), []string{"color"}, []string{"x"}, func(i int, values map[string]interface{}) (bool, error) {
		if i != len(got) {
			t.Errorf("example index: got %d, want %d", i, len(got))
		}
		got = append(got, values)
		return true, nil
	})
	if err != nil {
		t.Fatalf("iterating on examples: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("examples yielded: got %d, want 2", len(got))
	}
	if got[0]["color"] != "red" || got[0]["x"] != 1.5 {
		t.Errorf("example 0: got %v", got[0])
	}
	if _, ok := got[1]["color"]; ok {
		t.Errorf("example 1: NULL color yielded as %v", got[1]["color"])
	}
	if !rows.closed {
		t.Error("rows were not closed after iterating")
	}
}

func TestIterateOnExamplesClosesRowsOnError(t *testing.T) {
	rows := &stubRows{
		columns: []string{"x"},
		values: [][]driver.Value{
			{1.0},
			{2.0},
		},
	}
	a := stubAdapter(t, rows)

	err := a.IterateOnExamples(context.Background(), nil, []string{"x"}, func(i int, values map[string]interface{}) (bool, error) {
		return false, fmt.Errorf("rejecting example %d", i)
	})
	if err == nil {
		t.Fatal("expected the lambda error to be returned")
	}
	if !rows.closed {
		t.Error("rows were not closed after a lambda error")
	}
}
