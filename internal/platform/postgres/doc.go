// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces (repositories) defined in the internal/store package,
// and for the task queue and result persistence interfaces defined in
// internal/task. It handles the details of query execution and data mapping
// between domain entities and database records.
package postgres