package model

// Email is one outbound message handed to a mail provider.
type Email struct {
	From    string `json:"from"`
	To      string `json:"to"`
	ReplyTo string `json:"replyTo,omitempty"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}
