package mailbox

import (
	"context"
	"fmt"
	"io"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/tradeops/cot-mapping-service/pkg/common/logger"
	"golang.org/x/oauth2/clientcredentials"
)

// Client pulls unread messages with spreadsheet attachments over IMAP.
// accept filters attachment filenames; anything else on a message is
// ignored.
type Client struct {
	accept func(filename string) bool
}

func NewClient(accept func(filename string) bool) *Client {
	if accept == nil {
		accept = func(string) bool { return true }
	}
	return &Client{accept: accept}
}

// FetchUnread connects with the given configuration, collects unseen
// messages matching the subject filter, extracts accepted attachments, and
// marks the fetched messages seen before returning.
func (c *Client) FetchUnread(ctx context.Context, cfg *Config) ([]Message, error) {
	addr := fmt.Sprintf("%s:%d", cfg.IMAPServer, cfg.IMAPPort)
	conn, err := client.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	defer func() { _ = conn.Logout() }()

	if err := c.authenticate(ctx, conn, cfg); err != nil {
		return nil, fmt.Errorf("authenticating as %s: %w", cfg.Username, err)
	}

	folder := cfg.Folder
	if folder == "" {
		folder = "INBOX"
	}
	if _, err := conn.Select(folder, false); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", folder, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	if cfg.SubjectFilter != "" {
		criteria.Header.Add("Subject", cfg.SubjectFilter)
	}

	ids, err := conn.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("searching mailbox: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchEnvelope}

	fetched := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- conn.Fetch(seqset, items, fetched)
	}()

	var messages []Message
	for msg := range fetched {
		parsed := c.extract(msg, section)
		if len(parsed.Attachments) > 0 {
			messages = append(messages, parsed)
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}

	// Everything fetched is marked seen, attachments or not, so the next
	// poll does not reprocess it.
	markSeen := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := conn.Store(seqset, markSeen, []interface{}{imap.SeenFlag}, nil); err != nil {
		logger.Log.WithError(err).Warn("failed to mark messages seen")
	}

	return messages, nil
}

func (c *Client) authenticate(ctx context.Context, conn *client.Client, cfg *Config) error {
	if cfg.OAuthTokenURL == "" {
		return conn.Login(cfg.Username, cfg.Password)
	}

	creds := clientcredentials.Config{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		TokenURL:     cfg.OAuthTokenURL,
	}
	token, err := creds.Token(ctx)
	if err != nil {
		return fmt.Errorf("fetching oauth token: %w", err)
	}

	return conn.Authenticate(sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
		Username: cfg.Username,
		Token:    token.AccessToken,
		Host:     cfg.IMAPServer,
		Port:     cfg.IMAPPort,
	}))
}

func (c *Client) extract(msg *imap.Message, section *imap.BodySectionName) Message {
	out := Message{}
	if msg.Envelope != nil {
		out.Subject = msg.Envelope.Subject
		out.MessageID = msg.Envelope.MessageId
		if len(msg.Envelope.From) > 0 {
			out.Sender = msg.Envelope.From[0].Address()
		}
	}

	body := msg.GetBody(section)
	if body == nil {
		return out
	}

	reader, err := mail.CreateReader(body)
	if err != nil {
		logger.Log.WithError(err).WithField("message_id", out.MessageID).Warn("unreadable message body")
		return out
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Log.WithError(err).WithField("message_id", out.MessageID).Warn("failed to read message part")
			break
		}

		header, ok := part.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		filename, err := header.Filename()
		if err != nil || filename == "" || !c.accept(filename) {
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			logger.Log.WithError(err).WithField("attachment", filename).Warn("failed to read attachment")
			continue
		}
		out.Attachments = append(out.Attachments, Attachment{Filename: filename, Data: data})
	}

	return out
}
