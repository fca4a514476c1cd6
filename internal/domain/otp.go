package domain

import "time"

// OTPRecord is the single active one-time code for an email address.
// PK: email. Issuing a new code overwrites the previous record.
// TTL is a Unix timestamp used as DynamoDB TTL; expiry itself is checked on read.
type OTPRecord struct {
	Email     string    `json:"email" dynamodbav:"email"`
	Code      string    `json:"-" dynamodbav:"code"`
	Used      bool      `json:"used" dynamodbav:"used"`
	Attempts  int       `json:"attempts" dynamodbav:"attempts"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at"`
	TTL       int64     `json:"-" dynamodbav:"ttl"`
}

// Usable reports whether the record can still be consumed at now, given the
// number of verification attempts allowed per code.
func (o *OTPRecord) Usable(now time.Time, maxAttempts int) bool {
	return !o.Used && now.Before(o.ExpiresAt) && o.Attempts < maxAttempts
}
