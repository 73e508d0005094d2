// Package clientip resolves the address of the caller behind reverse proxies.
//
// The address is recorded in session activity logs and stamped on the user as
// last_login_ip after a successful social login.
package clientip
