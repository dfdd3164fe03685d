// Package auth provides authentication middleware for chiefstaff-server.
//
// Middleware(mode, header, key, next) wraps an http.Handler and validates the
// API key from the named HTTP header on every request.
//
// When mode != "apikey" or key == "", all requests pass through (useful for
// local development with auth disabled). When the key is incorrect or absent,
// the middleware answers 401 immediately without invoking next.
package auth
