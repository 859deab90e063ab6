package models

import "fmt"

// Platform identifies a supported cookie-auth blogging platform
type Platform string

const (
	PlatformBlogger     Platform = "blogger"
	PlatformTumblr      Platform = "tumblr"
	PlatformLiveJournal Platform = "livejournal"
	PlatformTypepad     Platform = "typepad"
)

// AllPlatforms returns every platform the engine can drive
func AllPlatforms() []Platform {
	return []Platform{PlatformBlogger, PlatformTumblr, PlatformLiveJournal, PlatformTypepad}
}

// ParsePlatform validates and normalizes a platform identifier
func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	for _, known := range AllPlatforms() {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unsupported platform: %s", s)
}

func (p Platform) String() string {
	return string(p)
}
