// Package common contains shared constants and error taxonomy used across
// the matchdeck client components.
package common

const (
	// CSRFHeaderName carries the anti-forgery token on mutating requests.
	CSRFHeaderName = "X-CSRFToken"

	// AuthorizationHeaderName carries the bearer credential.
	AuthorizationHeaderName = "Authorization"

	// DefaultPhotoURL is shown whenever a profile or match arrives without a photo.
	DefaultPhotoURL = "/static/images/default_avatar.png"
)
