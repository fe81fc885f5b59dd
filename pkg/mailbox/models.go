package mailbox

import "time"

// Config is the single active delivery configuration row for the polling
// driver. It is only mutated through explicit configuration updates.
type Config struct {
	ID                uint       `json:"id" gorm:"primaryKey;column:id"`
	IMAPServer        string     `json:"imap_server" gorm:"column:imap_server;size:255"`
	IMAPPort          int        `json:"imap_port" gorm:"column:imap_port"`
	SMTPServer        string     `json:"smtp_server" gorm:"column:smtp_server;size:255"`
	SMTPPort          int        `json:"smtp_port" gorm:"column:smtp_port"`
	Username          string     `json:"username" gorm:"column:username;size:255"`
	Password          string     `json:"-" gorm:"column:password;size:255"`
	OAuthTokenURL     string     `json:"oauth_token_url,omitempty" gorm:"column:oauth_token_url;size:255"`
	OAuthClientID     string     `json:"oauth_client_id,omitempty" gorm:"column:oauth_client_id;size:255"`
	OAuthClientSecret string     `json:"-" gorm:"column:oauth_client_secret;size:255"`
	Enabled           bool       `json:"enabled" gorm:"column:enabled"`
	Folder            string     `json:"folder" gorm:"column:folder;size:50"`
	SubjectFilter     string     `json:"subject_filter" gorm:"column:subject_filter;size:255"`
	PollIntervalSecs  int        `json:"poll_interval_seconds" gorm:"column:poll_interval_seconds"`
	LastCheck         *time.Time `json:"last_check,omitempty" gorm:"column:last_check"`
	CreatedAt         time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (Config) TableName() string {
	return "delivery_config"
}

func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalSecs <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.PollIntervalSecs) * time.Second
}

// Attachment is one spreadsheet file pulled off a message.
type Attachment struct {
	Filename string
	Data     []byte
}

// Message is an unread mailbox message carrying at least one spreadsheet
// attachment.
type Message struct {
	Sender      string
	Subject     string
	MessageID   string
	Attachments []Attachment
}
