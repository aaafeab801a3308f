// Package domain contains the core entities of the quiz platform that the
// background tasks operate on.
package domain
