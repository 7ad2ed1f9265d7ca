package repositories

import (
	"database/sql"
	"fmt"
)

// sequenceTables lists the tables that own a <table>_sequence counter.
var sequenceTables = map[string]bool{
	"enrollments": true,
}

// NextSequence increments and returns the counter kept in <table>_sequence.
//
// Sequence numbers give enrollments a stable order that survives clock skew on the host.
func NextSequence(db *sql.DB, table string) (int, error) {
	if !sequenceTables[table] {
		return 0, fmt.Errorf("no sequence for table %q", table)
	}

	var sequence int
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)
	if err := db.QueryRow(query).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to advance %s sequence: %w", table, err)
	}
	return sequence, nil
}
