// Package db implements the SQLite-backed project registry. It provides a
// Repository type that satisfies the domain repository interfaces, using
// sqlx for data access and goose for schema migrations embedded in the
// binary.
package db
