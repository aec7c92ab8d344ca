package test_utils

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

var fixtureSeq atomic.Int64

// InsertUser stores a user row with a placeholder password hash and returns its id.
func InsertUser(t *testing.T, db *pgxpool.Pool, firstName, lastName string) int {
	t.Helper()
	n := fixtureSeq.Add(1)
	var id int
	err := db.QueryRow(context.Background(),
		`INSERT INTO users (username, email, first_name, last_name, password_hash) VALUES ($1, $2, $3, $4, 'x') RETURNING id`,
		fmt.Sprintf("user%d", n), fmt.Sprintf("user%d@example.com", n), firstName, lastName,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// InsertInterviewer stores an interviewer profile for a new user and returns the interviewer id.
func InsertInterviewer(t *testing.T, db *pgxpool.Pool, active bool, rateCents int64) int {
	t.Helper()
	userId := InsertUser(t, db, "Test", fmt.Sprintf("Interviewer %d", fixtureSeq.Load()))
	var id int
	err := db.QueryRow(context.Background(),
		`INSERT INTO interviewer (user_id, bio, cal_event_type_id, hourly_rate_cents, is_active, companies)
			VALUES ($1, 'Bio', $2, $3, $4, 'Google, Meta, Amazon') RETURNING id`,
		userId, fmt.Sprintf("event-type-%d", userId), rateCents, active,
	).Scan(&id)
	require.NoError(t, err)
	return id
}
