// Package rotation reacts to database credential rotations by dropping the
// cached connection, so the next request reconnects with the new secret.
package rotation

import "time"

// Topic is the stream credential rotation events are published on.
const Topic = "credentials.rotated"

// CredentialsRotated announces that the secret with SecretID has a new value.
type CredentialsRotated struct {
	SecretID  string    `json:"secretId"`
	RotatedAt time.Time `json:"rotatedAt"`
}
