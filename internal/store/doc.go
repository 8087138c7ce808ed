// Package store persists entities as datoms in an attribute-value store,
// with SQLite and PostgreSQL backends behind database/sql and an in-memory
// double for tests and dry runs.
//
// Data lives in four tables: attrs holds installed attribute definitions,
// entities allocates ids, datoms holds (entity, attribute, value) triples,
// and uniques indexes the values of unique attributes. A transaction takes
// fragments and resolves everything inside one database transaction:
// attribute installs, upserts against unique identity attributes, temp id
// merging, lookup refs, reverse refs, and nested child fragments.
package store
