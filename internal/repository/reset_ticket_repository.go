package repository

import (
	"context"
	"database/sql"
	"time"
)

// ResetTicketRepo persists password-reset tickets (single 'token_hash'
// column).  It is only used when the hardened reset flow is enabled.
type ResetTicketRepo struct{ DB *sql.DB }

func NewResetTicketRepo(db *sql.DB) *ResetTicketRepo { return &ResetTicketRepo{DB: db} }

// Store inserts a ticket hash row for email.
func (r *ResetTicketRepo) Store(ctx context.Context, email, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO reset_tickets (email, token_hash, expires_at) VALUES (?,?,?)",
		email, tokenHash, exp.UTC())
	return err
}

// Consume marks the ticket used if it belongs to email, is unused and has not
// expired.  The check and the mark are one UPDATE so a ticket can be spent
// only once.  ErrNotFound covers every rejection.
func (r *ResetTicketRepo) Consume(ctx context.Context, email, tokenHash string, now time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE reset_tickets SET used_at=?
		  WHERE token_hash=? AND email=? AND used_at IS NULL AND expires_at > ?`,
		now.UTC(), tokenHash, email, now.UTC())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RevokeAllForEmail marks every unused ticket for email as used.
func (r *ResetTicketRepo) RevokeAllForEmail(ctx context.Context, email string, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE reset_tickets SET used_at=? WHERE email=? AND used_at IS NULL",
		now.UTC(), email)
	return err
}
