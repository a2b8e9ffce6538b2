package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

// Profile is a backend user.
type Profile struct {
	ID           string `db:"id"`
	Email        string `db:"email"`
	FullName     string `db:"full_name"`
	Role         string `db:"role"`
	PasswordHash []byte `db:"password_hash"`
}

func (r *Repo) ProfileByEmail(ctx context.Context, email string) (*Profile, error) {
	query, args, err := psql.Select("id", "email", "full_name", "role", "password_hash").
		From(TableProfiles).Where(sq.Eq{"email": email}).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := pgxscan.Get(ctx, r.db, &p, query, args...); err != nil {
		return nil, mapError(err, TableProfiles, email)
	}
	return &p, nil
}

// LogAccess appends a sign-in/sign-out entry to user_access_logs.
func (r *Repo) LogAccess(ctx context.Context, userID, action string, at time.Time) error {
	query, args, err := psql.Insert(TableUserAccessLogs).
		Columns("user_id", "action", "created_at").
		Values(userID, action, at).ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return mapError(err, TableUserAccessLogs, userID)
	}
	return nil
}
