// Package pg wires PostgreSQL into the service.
//
// Connect builds a pgx pool with retries, OpenDB exposes it as *sql.DB for the
// user directory, and Migrate runs the embedded goose migrations. The error
// helpers classify driver errors so that storage code can translate them into
// domain errors without importing pgx itself.
package pg
