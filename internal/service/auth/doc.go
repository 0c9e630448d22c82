// Package auth issues and validates the JWT access and refresh tokens that
// authenticate API requests, and verifies bcrypt password hashes at login.
package auth
