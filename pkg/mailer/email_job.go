package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Template selects one of the embedded templates ("verify_email",
// "reset_password", "two_factor_code"); Data feeds it. Raw Subject/Text/HTML
// may be used instead of a template.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}
