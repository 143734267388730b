package repository

import (
	"fmt"
	"strings"
)

// Dialect selects the SQL flavour of a store.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const columns = "register_number, student_name, hall_name, seat_number, exam_date, exam_time"

const postgresTable = `CREATE TABLE IF NOT EXISTS hall_allocations (
  id SERIAL PRIMARY KEY,
  register_number TEXT UNIQUE NOT NULL CHECK (register_number <> ''),
  student_name TEXT NOT NULL CHECK (student_name <> ''),
  hall_name TEXT NOT NULL CHECK (hall_name <> ''),
  seat_number TEXT NOT NULL CHECK (seat_number <> ''),
  exam_date TEXT NOT NULL,
  exam_time TEXT NOT NULL,
  created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
)`

const sqliteTable = `CREATE TABLE IF NOT EXISTS hall_allocations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  register_number TEXT UNIQUE NOT NULL CHECK (register_number <> ''),
  student_name TEXT NOT NULL CHECK (student_name <> ''),
  hall_name TEXT NOT NULL CHECK (hall_name <> ''),
  seat_number TEXT NOT NULL CHECK (seat_number <> ''),
  exam_date TEXT NOT NULL,
  exam_time TEXT NOT NULL,
  created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

const lookupIndex = `CREATE INDEX IF NOT EXISTS idx_hall_allocations_register_number ON hall_allocations(register_number)`

const sampleRows = `INSERT INTO hall_allocations (` + columns + `)
VALUES
  ('REG12345', 'John Doe', 'Main Hall A', 'A101', '2023-05-15', '09:00 AM'),
  ('REG12346', 'Jane Smith', 'Main Hall A', 'A102', '2023-05-15', '09:00 AM'),
  ('REG12347', 'Robert Johnson', 'Main Hall B', 'B201', '2023-05-15', '01:00 PM'),
  ('REG12348', 'Emily Davis', 'Main Hall B', 'B202', '2023-05-15', '01:00 PM'),
  ('REG12349', 'Michael Wilson', 'Science Block', 'S101', '2023-05-16', '09:00 AM')
ON CONFLICT (register_number) DO NOTHING`

const updateSet = `student_name = excluded.student_name,
  hall_name = excluded.hall_name,
  seat_number = excluded.seat_number,
  exam_date = excluded.exam_date,
  exam_time = excluded.exam_time`

const (
	upsertPostgres = `INSERT INTO hall_allocations (` + columns + `)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (register_number) DO UPDATE SET
  ` + updateSet

	upsertSQLite = `INSERT INTO hall_allocations (` + columns + `)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (register_number) DO UPDATE SET
  ` + updateSet

	selectColumns = `id, ` + columns + `, created_at`
)

// SchemaStatements returns the provisioning statements for d, in execution order.
func SchemaStatements(d Dialect, seed bool) ([]string, error) {
	var stmts []string
	switch d {
	case DialectPostgres:
		stmts = []string{postgresTable, lookupIndex}
	case DialectSQLite:
		stmts = []string{sqliteTable, lookupIndex}
	default:
		return nil, fmt.Errorf("unknown dialect %q", d)
	}
	if seed {
		stmts = append(stmts, sampleRows)
	}
	return stmts, nil
}

// SchemaSQL renders the provisioning statements as one script an operator can run by hand.
func SchemaSQL(d Dialect, seed bool) (string, error) {
	stmts, err := SchemaStatements(d, seed)
	if err != nil {
		return "", err
	}
	return strings.Join(stmts, ";\n\n") + ";\n", nil
}
