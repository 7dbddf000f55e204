// Package database opens the PostgreSQL pool backing the postgres id store.
package database
