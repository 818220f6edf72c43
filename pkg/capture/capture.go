// Package capture turns an Instagram account name into the current
// story item: a stable snapshot descriptor plus the media bytes.
package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "storywatch/pkg/errors"
	"storywatch/pkg/instagram"
	"storywatch/pkg/logger"
	"storywatch/pkg/ratelimit"
	"storywatch/pkg/retry"
)

// Kind classifies the story media.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// ErrNoStory reports that the account has no active story. It is a
// normal outcome, not a failure.
var ErrNoStory = apperrors.New(apperrors.ErrorTypeNoStory, "no active story")

// IsNoStory reports whether err means the account has no active story.
func IsNoStory(err error) bool {
	return errors.Is(err, ErrNoStory)
}

// Item is one captured story.
type Item struct {
	// Account is the normalized account name.
	Account string
	// Kind is the media kind.
	Kind Kind
	// SnapshotBytes is a deterministic descriptor of the story item;
	// the same story always produces the same bytes.
	SnapshotBytes []byte
	// MediaBytes is the downloaded story media. Nil when the download
	// failed; the item is still processable without it.
	MediaBytes []byte
	// TakenAt is when the story was posted.
	TakenAt time.Time
}

// Capturer fetches the current story of an account.
type Capturer interface {
	Capture(ctx context.Context, account string) (*Item, error)
}

// StoryCapturer captures stories through the Instagram web API,
// respecting a shared rate limit and retrying transient failures.
type StoryCapturer struct {
	client   *instagram.Client
	limiter  ratelimit.Limiter
	retryCfg *retry.Config
	logger   logger.Logger

	mu      sync.Mutex
	userIDs map[string]string
}

// NewStoryCapturer wires a capturer over the given client.
func NewStoryCapturer(client *instagram.Client, limiter ratelimit.Limiter, retryCfg *retry.Config, log logger.Logger) *StoryCapturer {
	if log == nil {
		log = logger.GetLogger()
	}
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	return &StoryCapturer{
		client:   client,
		limiter:  limiter,
		retryCfg: retryCfg,
		logger:   log,
		userIDs:  make(map[string]string),
	}
}

// Capture fetches the newest active story for an account. Returns
// ErrNoStory when the account has nothing live.
func (c *StoryCapturer) Capture(ctx context.Context, account string) (*Item, error) {
	if !instagram.IsValidUsername(account) {
		return nil, apperrors.New(apperrors.ErrorTypeValidation, "invalid account name: "+account)
	}

	userID, err := c.resolveUserID(ctx, account)
	if err != nil {
		return nil, err
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	reel, err := retry.DoWithResult(ctx, func(ctx context.Context) (*instagram.ReelsMediaResponse, error) {
		return c.client.FetchReel(ctx, userID)
	}, c.retryCfg)
	if err != nil {
		return nil, err
	}

	item := latestItem(reel)
	if item == nil {
		return nil, ErrNoStory
	}

	snapshot, err := snapshotBytes(account, item)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeParsing, "failed to encode story snapshot", err)
	}

	kind := KindImage
	if item.IsVideo() {
		kind = KindVideo
	}

	captured := &Item{
		Account:       account,
		Kind:          kind,
		SnapshotBytes: snapshot,
		TakenAt:       time.Unix(item.TakenAt, 0).UTC(),
	}

	if mediaURL := item.MediaURL(); mediaURL != "" {
		media, err := c.downloadMedia(ctx, mediaURL)
		if err != nil {
			// A story without its media bytes is still worth reporting
			c.logger.WarnWithFields("story media download failed", map[string]interface{}{
				"account": account,
				"error":   err.Error(),
			})
		} else {
			captured.MediaBytes = media
		}
	}

	return captured, nil
}

// resolveUserID maps an account name to its numeric id, caching the
// result for the life of the capturer.
func (c *StoryCapturer) resolveUserID(ctx context.Context, account string) (string, error) {
	c.mu.Lock()
	if id, ok := c.userIDs[account]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	if err := c.wait(ctx); err != nil {
		return "", err
	}
	profile, err := retry.DoWithResult(ctx, func(ctx context.Context) (*instagram.ProfileResponse, error) {
		return c.client.FetchProfile(ctx, account)
	}, c.retryCfg)
	if err != nil {
		return "", err
	}

	id := profile.Data.User.ID
	c.mu.Lock()
	c.userIDs[account] = id
	c.mu.Unlock()

	c.logger.DebugWithFields("resolved account id", map[string]interface{}{
		"account": account,
		"user_id": id,
	})
	return id, nil
}

func (c *StoryCapturer) downloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return retry.DoWithResult(ctx, func(ctx context.Context) ([]byte, error) {
		return c.client.DownloadMedia(ctx, mediaURL)
	}, c.retryCfg)
}

func (c *StoryCapturer) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// latestItem picks the most recent story item across the returned
// reels.
func latestItem(reel *instagram.ReelsMediaResponse) *instagram.ReelItem {
	var latest *instagram.ReelItem
	for i := range reel.ReelsMedia {
		items := reel.ReelsMedia[i].Items
		for j := range items {
			if latest == nil || items[j].TakenAt > latest.TakenAt {
				latest = &items[j]
			}
		}
	}
	return latest
}

// snapshotBytes builds the deterministic story descriptor. Media URLs
// carry rotating CDN signatures, so only stable fields go in.
func snapshotBytes(account string, item *instagram.ReelItem) ([]byte, error) {
	descriptor := struct {
		Account   string `json:"account"`
		StoryID   string `json:"story_id"`
		MediaType int    `json:"media_type"`
		TakenAt   int64  `json:"taken_at"`
	}{
		Account:   account,
		StoryID:   item.ID,
		MediaType: item.MediaType,
		TakenAt:   item.TakenAt,
	}

	data, err := json.Marshal(descriptor)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal descriptor: %w", err)
	}
	return data, nil
}
