// Package cookie signs the session and remember-me cookies.
package cookie
