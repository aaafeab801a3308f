// Package mail is the mail-delivery collaborator consumed by notification
// and report tasks. Delivery may fail transiently; callers classify such
// failures as retryable.
package mail

import "context"

// Attachment is a file attached to an outgoing message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// EmailSender delivers one message to a set of recipients. Implementations
// own their own timeouts; the task layer imposes no wall-clock limit.
type EmailSender interface {
	Send(ctx context.Context, recipients []string, subject, htmlBody string, attachments []Attachment) error
}

// Batches splits recipients into consecutive groups of at most size,
// preserving order. Bulk sends go out batch by batch to respect the mail
// server's rate limit; 45 recipients at size 20 yield groups of 20, 20, 5.
func Batches(recipients []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	var batches [][]string
	for start := 0; start < len(recipients); start += size {
		end := start + size
		if end > len(recipients) {
			end = len(recipients)
		}
		batches = append(batches, recipients[start:end])
	}
	return batches
}
