// Package google provides Google API credentials for the calendar client.
//
// Two modes are supported. In OAuth mode a user grants access once through the
// consent flow (the HTTP bootstrap endpoints or the `auth login` command); the
// token is written to a TokenStore and StoreTokenSource reads it back on
// demand, so the calendar client can be built at startup before any token
// exists. In service-account mode a JSON key is exchanged for JWT-based tokens,
// optionally impersonating a Workspace user.
package google
