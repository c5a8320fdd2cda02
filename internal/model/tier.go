package model

type Tier string

const (
	TierStandard Tier = "standard"
	TierVerified Tier = "verified"
)

// TierFor derives the quota tier from the user's verification flag.
func TierFor(u *User) Tier {
	if u != nil && u.IsVerified {
		return TierVerified
	}
	return TierStandard
}
