// Package collection implements the per-entity tables of the local cache.
//
// Every table shares one layout: the entity id, the project_id and
// installation_id secondary keys, the JSON payload, and the dirty, deleted
// and updated_at bookkeeping columns. Active listings exclude tombstones at
// the query; Get still returns them so sync can push deletions.
package collection
