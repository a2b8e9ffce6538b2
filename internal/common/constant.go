package common

import "time"

// LocalIDPrefix marks identifiers minted on the device that the remote
// backend has not assigned yet.
const LocalIDPrefix = "local-"

// GracePeriod is how long a soft-deleted project stays in the trash before
// it becomes eligible for permanent deletion.
const GracePeriod = 7 * 24 * time.Hour

// Metadata keys persisted in the local key/value table.
const (
	MetaUserEmail    = "user_email"
	MetaUserID       = "user_id"
	MetaSalt         = "salt"
	MetaVerifier     = "verifier"
	MetaSessionToken = "session_token"
	MetaLastPull     = "last_pull"
)
