// Package api implements the HTTP handlers of the quiz platform: user
// authentication, task submission, and task status polling. Handlers stay
// thin; they decode and validate requests, call into stores and the task
// client, and translate errors to HTTP status codes.
package api
