// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces (repositories) defined in the internal/store package.
// It handles the details of database connections, query execution, and data
// mapping between domain entities and database records.
//
// Stores talk to the database through database/sql using the pgx stdlib
// driver. Schema lives in the embedded goose migrations under migrations/.
package postgres
