package domain

import "time"

// Credential is a bearer credential for the GitHub API. It is one of
// StaticToken or InstallationToken; the set is closed.
type Credential interface {
	// Token returns the raw bearer value.
	Token() string
	isCredential()
}

// StaticToken is a pass-through personal access or fine-grained token.
// It has no expiry as far as the relay is concerned.
type StaticToken struct {
	Value string
}

func (t StaticToken) Token() string { return t.Value }
func (StaticToken) isCredential()    {}

// InstallationToken is a short-lived token minted for a GitHub App installation.
type InstallationToken struct {
	Value          string
	ExpiresAt      time.Time
	InstallationID int64
}

func (t InstallationToken) Token() string { return t.Value }
func (InstallationToken) isCredential()    {}

// FreshAt reports whether the token can still be handed out at now, keeping
// at least margin of remaining lifetime.
func (t InstallationToken) FreshAt(now time.Time, margin time.Duration) bool {
	return t.Value != "" && now.Before(t.ExpiresAt.Add(-margin))
}

// AppIdentity identifies a GitHub App. PrivateKey is the PEM-encoded RSA key
// used to sign app JWTs; it never leaves the process.
type AppIdentity struct {
	AppID      int64
	PrivateKey []byte
}
