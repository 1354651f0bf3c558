package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/tts-access-api/internal/model"
)

const userColumns = "id, first_name, last_name, username, email, password_hash, role_id, is_verified, verification_token, profile_picture, created_at, updated_at"

// UserRepo is the credential store backed by the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

type rowScanner interface{ Scan(dest ...any) error }

func scanUser(s rowScanner) (model.User, error) {
	var (
		u      model.User
		roleID sql.NullInt64
		token  sql.NullString
	)
	err := s.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email, &u.PasswordHash,
		&roleID, &u.IsVerified, &token, &u.ProfilePicture, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if roleID.Valid {
		u.RoleID = uint64(roleID.Int64)
	}
	u.VerificationToken = token.String
	return u, nil
}

func nullableRole(id uint64) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(id), Valid: id != 0}
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create inserts u and fills in its ID.  A unique-key collision is returned
// as ErrEmailExists or ErrUsernameExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (first_name, last_name, username, email, password_hash, role_id, is_verified, verification_token, profile_picture)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		u.FirstName, u.LastName, u.Username, strings.ToLower(strings.TrimSpace(u.Email)), u.PasswordHash,
		nullableRole(u.RoleID), u.IsVerified, nullableString(u.VerificationToken), u.ProfilePicture)
	if err != nil {
		return translateUserWrite(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// FindByEmailOrUsername returns the first user holding either identifier.
func (r *UserRepo) FindByEmailOrUsername(ctx context.Context, email, username string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? OR username=? LIMIT 1",
		strings.ToLower(strings.TrimSpace(email)), username)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1",
		strings.ToLower(strings.TrimSpace(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, args ...any) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// MarkVerified flags the account verified and clears the outstanding code.
func (r *UserRepo) MarkVerified(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_verified=1, verification_token=NULL WHERE id=?", id)
	return err
}

// SetVerificationToken replaces the outstanding verification code.
func (r *UserRepo) SetVerificationToken(ctx context.Context, id uint64, code string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET verification_token=? WHERE id=?", nullableString(code), id)
	return err
}

// UpdatePasswordByEmail overwrites the password hash of the account with
// that email.  It reports how many rows changed; zero is not an error.
func (r *UserRepo) UpdatePasswordByEmail(ctx context.Context, email, hash string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE email=?",
		hash, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// EmailTakenByOther reports whether another account already uses email.
func (r *UserRepo) EmailTakenByOther(ctx context.Context, email string, id uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email=? AND id<>?",
		strings.ToLower(strings.TrimSpace(email)), id).Scan(&n)
	return n > 0, err
}

// ApplyProfilePatch writes the set fields of p, one column per field.
// An empty patch is a no-op.
func (r *UserRepo) ApplyProfilePatch(ctx context.Context, id uint64, p model.ProfilePatch) error {
	var (
		sets []string
		args []any
	)
	if p.FirstName.Set {
		sets, args = append(sets, "first_name=?"), append(args, p.FirstName.Value)
	}
	if p.LastName.Set {
		sets, args = append(sets, "last_name=?"), append(args, p.LastName.Value)
	}
	if p.Email.Set {
		sets, args = append(sets, "email=?"), append(args, strings.ToLower(strings.TrimSpace(p.Email.Value)))
	}
	if p.ProfilePicture.Set {
		sets, args = append(sets, "profile_picture=?"), append(args, p.ProfilePicture.Value)
	}
	if p.IsVerified.Set {
		sets, args = append(sets, "is_verified=?"), append(args, p.IsVerified.Value)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		return translateUserWrite(err)
	}
	return nil
}

// SetRole points the user at another role.
func (r *UserRepo) SetRole(ctx context.Context, id, roleID uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET role_id=? WHERE id=?", nullableRole(roleID), id)
	return err
}

// Delete removes the user; ErrNotFound if nothing was deleted.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	return r.execOne(ctx, "DELETE FROM users WHERE id=?", id)
}

// ListExcludingRole returns every user whose role is not excludedRoleID
// (users without a role included), with RoleName filled from `roles`.
func (r *UserRepo) ListExcludingRole(ctx context.Context, excludedRoleID uint64) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT u.id, u.first_name, u.last_name, u.username, u.email, u.password_hash, u.role_id, u.is_verified,
		        u.verification_token, u.profile_picture, u.created_at, u.updated_at, COALESCE(r.name, '')
		   FROM users u LEFT JOIN roles r ON r.id = u.role_id
		  WHERE u.role_id IS NULL OR u.role_id <> ?
		  ORDER BY u.id`, excludedRoleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var (
			u      model.User
			roleID sql.NullInt64
			token  sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email, &u.PasswordHash,
			&roleID, &u.IsVerified, &token, &u.ProfilePicture, &u.CreatedAt, &u.UpdatedAt, &u.RoleName); err != nil {
			return nil, err
		}
		if roleID.Valid {
			u.RoleID = uint64(roleID.Int64)
		}
		u.VerificationToken = token.String
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepo) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
