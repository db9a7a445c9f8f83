package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jcmexdev/storefront/internal/store/domain"
)

type userRow struct {
	ID           string `db:"id"`
	Username     string `db:"username"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	IsActive     bool   `db:"is_active"`
	IsStaff      bool   `db:"is_staff"`
	IsSuperuser  bool   `db:"is_superuser"`
	DateJoined   string `db:"date_joined"`
}

func newUserRow(u domain.User) userRow {
	return userRow{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		IsStaff:      u.IsStaff,
		IsSuperuser:  u.IsSuperuser,
		DateJoined:   formatTime(u.DateJoined),
	}
}

func (r userRow) toDomain() (domain.User, error) {
	joined, err := parseRFC3339(r.DateJoined)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		IsActive:     r.IsActive,
		IsStaff:      r.IsStaff,
		IsSuperuser:  r.IsSuperuser,
		DateJoined:   joined,
	}, nil
}

const userColumns = "id, username, email, password_hash, is_active, is_staff, is_superuser, date_joined"

var createUserQuery = `INSERT INTO users (` + userColumns + `)
	VALUES (:id, :username, :email, :password_hash, :is_active, :is_staff, :is_superuser, :date_joined)`

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	if _, err := sqlx.NamedExecContext(ctx, s.conn(ctx), createUserQuery, newUserRow(u)); err != nil {
		return fmt.Errorf("sqlstore: create user %q: %w", u.Username, conflictOr(err, "user", u.Username))
	}
	return nil
}

var (
	getUserQuery           = "SELECT " + userColumns + " FROM users WHERE id = ?"
	getUserByUsernameQuery = "SELECT " + userColumns + " FROM users WHERE username = ?"
	getUserByEmailQuery    = "SELECT " + userColumns + " FROM users WHERE email = ?"
)

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.getUser(ctx, getUserQuery, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return s.getUser(ctx, getUserByUsernameQuery, username)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.getUser(ctx, getUserByEmailQuery, email)
}

func (s *Store) getUser(ctx context.Context, query, key string) (domain.User, error) {
	var row userRow
	if err := sqlx.GetContext(ctx, s.conn(ctx), &row, query, key); err != nil {
		return domain.User{}, notFoundOr(err, "user", key)
	}
	return row.toDomain()
}

var listUsersQuery = "SELECT " + userColumns + " FROM users ORDER BY username"

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	if err := sqlx.SelectContext(ctx, s.conn(ctx), &rows, listUsersQuery); err != nil {
		return nil, fmt.Errorf("sqlstore: list users: %w", err)
	}
	res := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		u, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, nil
}

var updateUserQuery = `UPDATE users
	SET username = :username, email = :email, password_hash = :password_hash,
	    is_active = :is_active, is_staff = :is_staff, is_superuser = :is_superuser
	WHERE id = :id`

func (s *Store) UpdateUser(ctx context.Context, u domain.User) error {
	if _, err := sqlx.NamedExecContext(ctx, s.conn(ctx), updateUserQuery, newUserRow(u)); err != nil {
		return fmt.Errorf("sqlstore: update user %q: %w", u.Username, conflictOr(err, "user", u.Email))
	}
	return nil
}

var deleteUsersExceptQuery = "DELETE FROM users WHERE username <> ?"

// DeleteUsersExcept removes every other user together with their orders.
func (s *Store) DeleteUsersExcept(ctx context.Context, username string) (int64, error) {
	res, err := s.conn(ctx).ExecContext(ctx, deleteUsersExceptQuery, username)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: delete users: %w", err)
	}
	return res.RowsAffected()
}

var countOrdersOfUsersExceptQuery = `SELECT COUNT(*) FROM orders o
	JOIN users u ON u.id = o.user_id
	WHERE u.username <> ?`

func (s *Store) CountOrdersOfUsersExcept(ctx context.Context, username string) (int64, error) {
	var n int64
	if err := sqlx.GetContext(ctx, s.conn(ctx), &n, countOrdersOfUsersExceptQuery, username); err != nil {
		return 0, fmt.Errorf("sqlstore: count orders: %w", err)
	}
	return n, nil
}
