// Package jwt reads claims from access tokens without verifying them, and provides a
// small HS256 issuer for fake APIs and tests.
//
// The client never trusts unverified claims for authorization. Inspection only
// drives proactive refresh: deciding whether an access token is close enough to
// expiry that refreshing before sending saves a 401 round trip.
package jwt
