package model

import "time"

type Result struct {
	ID         string    `db:"id"`
	RunID      string    `db:"run_id"`
	Email      string    `db:"email"`
	Code       string    `db:"code"`
	Status     string    `db:"status"`
	Attempts   int       `db:"attempts"`
	RecordedAt time.Time `db:"recorded_at"`
	CreatedAt  time.Time `db:"created_at"`
}

type StatusCount struct {
	Status string `db:"status"`
	Count  int64  `db:"count"`
}
