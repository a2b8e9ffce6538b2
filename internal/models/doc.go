// Package models defines the instalatrack domain entities (projects,
// installations and their revision history, contacts, budgets, files) and
// the sync bookkeeping every locally cached record carries.
package models
