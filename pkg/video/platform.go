package video

import "strings"

// Platform is the social network a saved video link belongs to.
type Platform string

const (
	PlatformYouTube   Platform = "YouTube"
	PlatformInstagram Platform = "Instagram"
	PlatformFacebook  Platform = "Facebook"
	PlatformTikTok    Platform = "TikTok"
	PlatformTwitter   Platform = "Twitter"
	PlatformUnknown   Platform = "Unknown"
)

// Platforms lists the known platforms in display order.
var Platforms = []Platform{
	PlatformYouTube,
	PlatformInstagram,
	PlatformFacebook,
	PlatformTikTok,
	PlatformTwitter,
}

type platformRule struct {
	fragment string
	platform Platform
}

// Order matters: first match wins.
// x.com is matched with its boundary so hosts like netflix.com stay Unknown.
var platformRules = []platformRule{
	{"youtube.com", PlatformYouTube},
	{"youtu.be", PlatformYouTube},
	{"instagram.com", PlatformInstagram},
	{"facebook.com", PlatformFacebook},
	{"fb.watch", PlatformFacebook},
	{"tiktok.com", PlatformTikTok},
	{"twitter.com", PlatformTwitter},
	{"://x.com", PlatformTwitter},
	{".x.com", PlatformTwitter},
}

// DetectPlatform maps a URL to its platform by a case-insensitive substring
// match. It never fails; unrecognised links yield PlatformUnknown.
func DetectPlatform(rawURL string) Platform {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	if lower == "" {
		return PlatformUnknown
	}
	for _, rule := range platformRules {
		if strings.Contains(lower, rule.fragment) {
			return rule.platform
		}
	}
	return PlatformUnknown
}

// ParsePlatform accepts a platform label in any letter case. Empty input and
// unrecognised labels return PlatformUnknown and false.
func ParsePlatform(s string) (Platform, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PlatformUnknown, false
	}
	for _, p := range Platforms {
		if strings.EqualFold(s, string(p)) {
			return p, true
		}
	}
	if strings.EqualFold(s, string(PlatformUnknown)) {
		return PlatformUnknown, true
	}
	return PlatformUnknown, false
}

// Known reports whether p is one of the five supported platforms.
func (p Platform) Known() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// Lower is the wire form the processing service expects.
func (p Platform) Lower() string {
	return strings.ToLower(string(p))
}

func (p Platform) String() string {
	return string(p)
}
