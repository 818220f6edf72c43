package instagram

import (
	"fmt"
	"net/url"
)

const (
	// BaseURL is the base URL for the Instagram web API.
	BaseURL = "https://www.instagram.com"

	// webAppID identifies the web client to the API.
	webAppID = "936619743392459"

	// profileEndpoint resolves a username to profile data.
	profileEndpoint = "/api/v1/users/web_profile_info/"

	// reelEndpoint returns the active story reel for a user id.
	reelEndpoint = "/api/v1/feed/reels_media/"
)

// profilePath builds the path and query for a profile lookup.
func profilePath(username string) string {
	params := url.Values{}
	params.Set("username", username)
	return fmt.Sprintf("%s?%s", profileEndpoint, params.Encode())
}

// reelPath builds the path and query for a story reel lookup.
func reelPath(userID string) string {
	params := url.Values{}
	params.Set("reel_ids", userID)
	return fmt.Sprintf("%s?%s", reelEndpoint, params.Encode())
}

// StoryURL is the public story page for a username.
func StoryURL(username string) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("%s/stories/%s/", BaseURL, username)
}

// ProfileURL is the public profile page for a username.
func ProfileURL(username string) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/", BaseURL, username)
}

// IsValidUsername reports whether a username satisfies Instagram's
// character rules.
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}
	return true
}
