// Package vault stores incident reports encrypted under a password chosen by
// the reporter. The password is never stored and there is no recovery path.
package vault

import "time"

// AnonymousUserID owns reports filed without an account or marked anonymous.
const AnonymousUserID = "anonymous"

// CreatedAtLayout matches JavaScript's Date.toISOString.
const CreatedAtLayout = "2006-01-02T15:04:05.000Z"

// Record is one stored report file. Only Encrypted is secret; the rest is
// plaintext metadata.
type Record struct {
	ID          string   `json:"id"`
	UserID      string   `json:"userId"`
	CreatedAt   string   `json:"createdAt"`
	Category    string   `json:"category,omitempty"`
	IsAnonymous bool     `json:"isAnonymous"`
	IsWitness   bool     `json:"isWitness"`
	Encrypted   Envelope `json:"encrypted"`
}

// Envelope is a hex-encoded ciphertext. Alg is empty for legacy AES-256-CBC
// records.
type Envelope struct {
	Alg           string `json:"alg,omitempty"`
	IV            string `json:"iv"`
	EncryptedData string `json:"encryptedData"`
}

// Report is a decrypted report: the submitted fields with the record
// metadata laid over them.
type Report map[string]any

// Merge builds the API view of a decrypted body. Metadata keys win over
// same-named body fields.
func (r Record) Merge(body map[string]any) Report {
	out := make(Report, len(body)+6)
	for k, v := range body {
		out[k] = v
	}
	out["id"] = r.ID
	out["userId"] = r.UserID
	out["createdAt"] = r.CreatedAt
	if r.Category != "" {
		out["category"] = r.Category
	}
	out["isAnonymous"] = r.IsAnonymous
	out["isWitness"] = r.IsWitness
	return out
}

// FormatCreatedAt renders t in CreatedAtLayout.
func FormatCreatedAt(t time.Time) string {
	return t.UTC().Format(CreatedAtLayout)
}

// SweepStats counts one retrieval pass. It is exported to metrics and logs
// but never returned to the caller.
type SweepStats struct {
	Scanned   int
	Decrypted int
	Skipped   int
}
