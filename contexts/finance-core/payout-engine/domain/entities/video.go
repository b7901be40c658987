package entities

import (
	"strings"
	"time"
)

type VideoStatus string

const (
	VideoStatusPending  VideoStatus = "pending"
	VideoStatusApproved VideoStatus = "approved"
	VideoStatusRejected VideoStatus = "rejected"
)

type Video struct {
	VideoID          string
	UserID           string
	CampaignID       string
	URL              string
	Platform         string
	Views            int64
	Status           VideoStatus
	ValidationErrors []string
	CreatedAt        time.Time
	LastRefreshedAt  *time.Time
}

func (v Video) IsApproved() bool {
	return v.Status == VideoStatusApproved
}

// MergeViews never lets a refresh lower the stored count.
func (v Video) MergeViews(observed int64) int64 {
	if observed > v.Views {
		return observed
	}
	return v.Views
}

// ContentRules are the campaign requirements a clip title/description must meet.
type ContentRules struct {
	RequiredHashtag string
	RequiredMention string
}

// Check returns one message per unmet requirement. Matching is case-insensitive
// and tolerates a leading '#'/'@' on the stored requirement.
func (r ContentRules) Check(title string, description string) []string {
	text := strings.ToLower(title + " " + description)
	problems := make([]string, 0, 2)

	if tag := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(r.RequiredHashtag), "#")); tag != "" {
		if !strings.Contains(text, "#"+tag) {
			problems = append(problems, "missing hashtag #"+tag)
		}
	}
	if mention := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(r.RequiredMention), "@")); mention != "" {
		if !strings.Contains(text, mention) {
			problems = append(problems, "missing creator mention @"+mention)
		}
	}
	return problems
}
