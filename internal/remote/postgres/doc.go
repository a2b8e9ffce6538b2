// Package postgres talks to the hosted Postgres backend: entity upserts in
// the remote column layout, project purges, auth tables, and the schema
// migrations used for development databases.
package postgres
