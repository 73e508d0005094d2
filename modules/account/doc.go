// Package account mounts the sign-in services under /auth: password sign-in
// from this package and the social login handler from modules/social.
package account
