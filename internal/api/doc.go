// Package api handles incoming HTTP requests, request validation and
// response formatting. It adapts HTTP to the task and auth services:
// handlers decode and validate the body, read the authenticated user ID
// placed in the context by middleware.AuthMiddleware, call the service and
// translate errors to status codes in one place (errors.go).
package api
