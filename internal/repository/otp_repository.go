package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/tts-access-api/internal/model"
)

// OtpRepo stores one-time codes keyed by email.  There is deliberately no
// foreign key to `users`: codes are written while a registration is still
// being assembled.
type OtpRepo struct{ DB *sql.DB }

func NewOtpRepo(db *sql.DB) *OtpRepo { return &OtpRepo{DB: db} }

// Create records code for email, issued at createdAt.
func (r *OtpRepo) Create(ctx context.Context, email, code string, createdAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO otps (email, code, created_at) VALUES (?,?,?)",
		email, code, createdAt.UTC())
	return err
}

// LatestMatch returns the most recently issued code equal to code for email.
func (r *OtpRepo) LatestMatch(ctx context.Context, email, code string) (model.Otp, error) {
	var o model.Otp
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, email, code, created_at FROM otps
		  WHERE email=? AND code=?
		  ORDER BY created_at DESC, id DESC LIMIT 1`,
		email, code).Scan(&o.ID, &o.Email, &o.Code, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Otp{}, ErrNotFound
	}
	return o, err
}

// DeleteByEmail removes every outstanding code for email and reports how
// many were removed.
func (r *OtpRepo) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM otps WHERE email=?", email)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
