// Package db embeds the database schema and the sample catalog.
package db

import _ "embed"

// Schema holds the DDL for the books and orders tables. Every statement is
// idempotent so it can run on each start.
//
//go:embed migrations/001_schema.sql
var Schema string

// SampleCatalog is the JSON catalog used when no seed file is configured.
//
//go:embed seed/books.json
var SampleCatalog []byte
