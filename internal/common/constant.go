// Package common contains shared constants and sentinel errors used across
// ReadBack components.
package common

// AuthorizationHeaderName carries the bearer access token on inbound HTTP requests.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the only authorization scheme accepted by the API.
const BearerScheme = "Bearer"

// AudioContentType is the media type of synthesized audio artifacts.
const AudioContentType = "audio/mpeg"
