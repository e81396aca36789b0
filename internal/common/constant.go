// Package common contains shared constants and sentinel errors used across
// GophChat components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// session token on outbound requests.
const AccessTokenHeaderName = "access_token"

// MessagesTopic is the broadcast topic every message mutation is published on.
const MessagesTopic = "messages"
