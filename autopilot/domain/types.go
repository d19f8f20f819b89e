package domain

// Platform identifies the social network a pair publishes to.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformX         Platform = "x"
)

// AllPlatforms lists every platform the engine can schedule for.
var AllPlatforms = []Platform{PlatformInstagram, PlatformTikTok, PlatformYouTube, PlatformX}

// Valid reports whether p names a known platform.
func (p Platform) Valid() bool {
	for _, known := range AllPlatforms {
		if p == known {
			return true
		}
	}
	return false
}

// PairKey builds the canonical lock/shard key for an (account, platform) pair.
func PairKey(accountID string, platform Platform) string {
	return accountID + "|" + string(platform)
}
