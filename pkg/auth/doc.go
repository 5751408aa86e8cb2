// Package auth implements the OAuth2 device-authorization grant against the
// forge identity provider: endpoint discovery, device-code issuance, token
// polling, and refresh-token exchange, with typed results for the provider's
// expected error codes.
package auth
