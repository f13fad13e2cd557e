// Package network describes the social networks whose posts can be resolved.
//
// Every network-specific behaviour (base domain, post path markers, search
// query shape, CSV column names, validation mode) lives in one static table
// so callers never branch on the network themselves.
package network

import (
	"fmt"
	"strings"
)

// ID identifies a social network.
type ID int

const (
	Instagram ID = iota + 1
	Facebook
)

// ValidationMode selects how search results are matched against a post.
type ValidationMode string

const (
	// ModeSimilarity requires the result title to resemble the post text.
	ModeSimilarity ValidationMode = "similarity"
	// ModePathMarkers requires the result URL to look like a post permalink.
	ModePathMarkers ValidationMode = "path"
)

// ParseMode parses a validation mode name. Empty input yields "" (no override).
func ParseMode(s string) (ValidationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "similarity", "content":
		return ModeSimilarity, nil
	case "path", "paths", "domain":
		return ModePathMarkers, nil
	}
	return "", fmt.Errorf("unknown validation mode %q", s)
}

// Column maps a Content Library export column onto the network schema.
// An empty Source means the target column is filled with Default.
type Column struct {
	Source  string
	Target  string
	Default string
}

// Spec is the static description of one network.
type Spec struct {
	ID             ID
	Name           string
	BaseURL        string
	BaseDomain     string
	PathMarkers    []string
	URLColumn      string
	UsernameColumn string
	TextColumn     string
	Validation     ValidationMode
	Columns        []Column
}

var table = map[ID]Spec{
	Instagram: {
		ID:             Instagram,
		Name:           "instagram",
		BaseURL:        "https://www.instagram.com/",
		BaseDomain:     "instagram.com",
		PathMarkers:    []string{"p/", "tv/", "reel/", "video/", "photo/"},
		URLColumn:      "url",
		UsernameColumn: "username",
		TextColumn:     "message",
		Validation:     ModePathMarkers,
		Columns: []Column{
			{"post_owner.name", "name", ""},
			{"creation_time", "time", ""},
			{"statistics.like_count", "likes", ""},
			{"text", "message", ""},
			{"post_owner.id", "profileId", ""},
			{"", "commentId", ""},
			{"post_owner.username", "username", ""},
			{"", "parentCommentId", ""},
			{"", "replies", ""},
			{"", "reply", "False"},
			{"", "shortcode", ""},
			{"", "reaction", ""},
			{"", "isVideo", ""},
			{"statistics.comment_count", "comments", ""},
			{"", "url", ""},
			{"", "profileUrl", ""},
			{"statistics.views", "videoViewCount", ""},
			{"", "isPrivateUser", ""},
			{"", "isVerifiedUser", ""},
			{"", "displayUrl", ""},
			{"", "followersCount", ""},
			{"id", "id", ""},
			{"", "caption", ""},
			{"", "thumbnail", ""},
			{"", "accessibilityCaption", ""},
			{"", "commentsDisabled", ""},
			{"", "videoDuration", ""},
			{"media_type", "productType", ""},
			{"", "isSponsored", "False"},
			{"", "locationName", ""},
			{"", "mediaCount", ""},
			{"multimedia", "media", ""},
			{"", "owner", ""},
			{"", "profileImage", ""},
			{"hashtags", "terms", ""},
		},
	},
	Facebook: {
		ID:             Facebook,
		Name:           "facebook",
		BaseURL:        "https://www.facebook.com/",
		BaseDomain:     "facebook.com",
		PathMarkers:    []string{"posts/", "videos/", "photos/", "groups/"},
		URLColumn:      "postUrl",
		UsernameColumn: "nickName",
		TextColumn:     "message",
		Validation:     ModeSimilarity,
		Columns: []Column{
			{"id", "id", ""},
			{"post_owner.name", "name", ""},
			{"post_owner.username", "nickName", ""},
			{"creation_time", "time", ""},
			{"text", "message", ""},
			{"post_owner.id", "profileId", ""},
			{"", "postId", ""},
			{"multimedia", "media", ""},
			{"", "attachments", ""},
			{"statistics.comment_count", "countComment", ""},
			{"statistics.views", "countSeen", ""},
			{"statistics.share_count", "countShare", ""},
			{"statistics.reaction_count", "countReaction", ""},
			{"statistics.like_count", "countLike", ""},
			{"statistics.love_count", "countLove", ""},
			{"statistics.care_count", "countCare", ""},
			{"statistics.haha_count", "countHaha", ""},
			{"statistics.wow_count", "countWow", ""},
			{"statistics.sad_count", "countSad", ""},
			{"statistics.angry_count", "countAngry", ""},
			{"", "profileUrl", ""},
			{"", "postUrl", ""},
			{"", "adUrl", ""},
		},
	},
}

// All returns every known network in a stable order.
func All() []ID {
	return []ID{Instagram, Facebook}
}

// Parse resolves a network by name or by its menu number ("1", "2").
func Parse(s string) (ID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "instagram", "ig", "1":
		return Instagram, nil
	case "facebook", "fb", "2":
		return Facebook, nil
	}
	return 0, fmt.Errorf("unknown network %q (want instagram or facebook)", s)
}

// Spec returns the table row for id. The zero Spec is returned for ids
// outside the enumeration, which only happens for unconverted input.
func (id ID) Spec() Spec {
	return table[id]
}

func (id ID) String() string {
	if s, ok := table[id]; ok {
		return s.Name
	}
	return fmt.Sprintf("network(%d)", int(id))
}

// ProfileURL builds the profile home page for username.
func (s Spec) ProfileURL(username string) string {
	return s.BaseURL + username
}

// Query builds the web search query for a post.
func (s Spec) Query(text, username string) string {
	text = strings.TrimSpace(text)
	if username = strings.TrimSpace(username); username == "" {
		return fmt.Sprintf("site: %s %s", s.BaseDomain, text)
	}
	return fmt.Sprintf("site: %s username: %s %s", s.BaseDomain, username, text)
}
