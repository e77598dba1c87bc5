package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

const defaultAvatarSize = 200

// GetGravatarURL generates a Gravatar URL for the given email address.
// Size defaults to 200px.
func GetGravatarURL(email string, size int) string {
	if size <= 0 {
		size = defaultAvatarSize
	}
	hash := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=%d&d=mp", hash, size)
}

// AvatarURL prefers the avatar picked up from the OAuth provider and falls
// back to Gravatar.
func AvatarURL(providerAvatar, email string) string {
	if strings.TrimSpace(providerAvatar) != "" {
		return providerAvatar
	}
	return GetGravatarURL(email, defaultAvatarSize)
}
