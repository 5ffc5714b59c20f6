package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createUser = `
INSERT INTO users (email, name, password_hash)
VALUES ($1, $2, $3)
RETURNING id, email, name, password_hash, customer_id, last_login_at, created_at, updated_at
`

type CreateUserParams struct {
	Email        string
	Name         string
	PasswordHash pgtype.Text
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.Email, arg.Name, arg.PasswordHash)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CustomerID, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

const getUserByID = `
SELECT id, email, name, password_hash, customer_id, last_login_at, created_at, updated_at
FROM users
WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CustomerID, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

const getUserByEmail = `
SELECT id, email, name, password_hash, customer_id, last_login_at, created_at, updated_at
FROM users
WHERE email = $1
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CustomerID, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

const getUserByCustomerID = `
SELECT id, email, name, password_hash, customer_id, last_login_at, created_at, updated_at
FROM users
WHERE customer_id = $1
`

func (q *Queries) GetUserByCustomerID(ctx context.Context, customerID string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByCustomerID, customerID)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CustomerID, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

const updateUserCustomerID = `
UPDATE users
SET customer_id = $2, updated_at = NOW()
WHERE id = $1
RETURNING id, email, name, password_hash, customer_id, last_login_at, created_at, updated_at
`

type UpdateUserCustomerIDParams struct {
	ID         string
	CustomerID string
}

func (q *Queries) UpdateUserCustomerID(ctx context.Context, arg UpdateUserCustomerIDParams) (User, error) {
	row := q.db.QueryRow(ctx, updateUserCustomerID, arg.ID, arg.CustomerID)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CustomerID, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

const updateUserLastLogin = `
UPDATE users
SET last_login_at = NOW(), updated_at = NOW()
WHERE id = $1
RETURNING id, email, name, password_hash, customer_id, last_login_at, created_at, updated_at
`

func (q *Queries) UpdateUserLastLogin(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRow(ctx, updateUserLastLogin, id)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CustomerID, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
