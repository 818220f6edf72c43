package instagram

// ProfileResponse is the top-level web_profile_info response.
type ProfileResponse struct {
	RequiresToLogin bool        `json:"requires_to_login"`
	Data            ProfileData `json:"data"`
	Status          string      `json:"status"`
}

// ProfileData wraps the user object.
type ProfileData struct {
	User ProfileUser `json:"user"`
}

// ProfileUser is the subset of profile fields the monitor needs.
type ProfileUser struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	IsPrivate bool   `json:"is_private"`
}

// ReelsMediaResponse is the top-level reels_media response.
type ReelsMediaResponse struct {
	ReelsMedia []Reel `json:"reels_media"`
	Status     string `json:"status"`
}

// Reel is one user's active story reel.
type Reel struct {
	ID    string     `json:"id"`
	Items []ReelItem `json:"items"`
}

// Media type codes used by the reels_media endpoint.
const (
	MediaTypeImage = 1
	MediaTypeVideo = 2
)

// ReelItem is a single story item.
type ReelItem struct {
	ID            string         `json:"id"`
	MediaType     int            `json:"media_type"`
	TakenAt       int64          `json:"taken_at"`
	ImageVersions ImageVersions2 `json:"image_versions2"`
	VideoVersions []VideoVersion `json:"video_versions"`
}

// IsVideo reports whether the item is a video story.
func (i *ReelItem) IsVideo() bool {
	return i.MediaType == MediaTypeVideo
}

// MediaURL returns the best media URL for the item: the first video
// version for videos, otherwise the first image candidate.
func (i *ReelItem) MediaURL() string {
	if i.IsVideo() && len(i.VideoVersions) > 0 {
		return i.VideoVersions[0].URL
	}
	if len(i.ImageVersions.Candidates) > 0 {
		return i.ImageVersions.Candidates[0].URL
	}
	return ""
}

// ImageVersions2 holds image renditions, best first.
type ImageVersions2 struct {
	Candidates []ImageCandidate `json:"candidates"`
}

// ImageCandidate is one image rendition.
type ImageCandidate struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}

// VideoVersion is one video rendition.
type VideoVersion struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}
