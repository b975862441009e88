package repositories

import (
	"database/sql"
	"fmt"
)

// NextSequence increments and returns the counter kept for table in <table>_sequence (single row, id = 1).
func NextSequence(db *sql.DB, table string) (int, error) {
	query := fmt.Sprintf(`UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value`, table)

	var sequence int
	if err := db.QueryRow(query).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to advance %s sequence: %w", table, err)
	}
	return sequence, nil
}
