package gmail

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xaenox/daily-summarizer/internal/apperr"
	"github.com/xaenox/daily-summarizer/internal/metrics"
	"github.com/xaenox/daily-summarizer/internal/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const defaultPageSize = 100

var metadataHeaders = []string{"From", "To", "Subject", "Date"}

// NewService builds a Gmail client from a service-account key using
// domain-wide delegation to impersonate delegatedUser.
func NewService(ctx context.Context, credentialsFile, delegatedUser string) (*gmailapi.Service, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("error reading gmail credentials: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, gmailapi.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("error parsing gmail credentials: %w", err)
	}
	conf.Subject = delegatedUser

	svc, err := gmailapi.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("error creating gmail service: %w", err)
	}
	return svc, nil
}

// Fetcher lists the emails of a mailbox inside a time window.
type Fetcher struct {
	svc      *gmailapi.Service
	userID   string
	pageSize int64
	logger   *zap.Logger
}

// NewFetcher reads the mailbox of userID; "me" is the impersonated user.
func NewFetcher(svc *gmailapi.Service, userID string, logger *zap.Logger) *Fetcher {
	if userID == "" {
		userID = "me"
	}
	return &Fetcher{
		svc:      svc,
		userID:   userID,
		pageSize: defaultPageSize,
		logger:   logger,
	}
}

// Query renders the Gmail search for w. before: is exclusive.
func Query(w models.TimeWindow) string {
	return fmt.Sprintf("after:%d before:%d", w.Start, w.End+1)
}

// Emails returns the window's emails with their metadata headers. A message
// that cannot be read is skipped; a failed listing is an upstream error.
func (f *Fetcher) Emails(ctx context.Context, w models.TimeWindow) ([]models.Email, error) {
	var refs []*gmailapi.Message
	err := f.svc.Users.Messages.List(f.userID).
		Q(Query(w)).
		MaxResults(f.pageSize).
		Pages(ctx, func(resp *gmailapi.ListMessagesResponse) error {
			refs = append(refs, resp.Messages...)
			return nil
		})
	if err != nil {
		return nil, apperr.Upstream("list gmail messages", err)
	}

	emails := make([]models.Email, 0, len(refs))
	for _, ref := range refs {
		msg, err := f.svc.Users.Messages.Get(f.userID, ref.Id).
			Format("metadata").
			MetadataHeaders(metadataHeaders...).
			Context(ctx).
			Do()
		if err != nil {
			metrics.PartialData.WithLabelValues("email").Inc()
			f.logger.Warn("Failed to get email",
				zap.String("message_id", ref.Id),
				zap.Error(err))
			continue
		}
		emails = append(emails, toEmail(msg))
	}

	f.logger.Info("Fetched emails",
		zap.Int("listed", len(refs)),
		zap.Int("fetched", len(emails)))
	return emails, nil
}

func toEmail(msg *gmailapi.Message) models.Email {
	email := models.Email{
		ID:         msg.Id,
		ThreadID:   msg.ThreadId,
		Snippet:    msg.Snippet,
		ReceivedAt: time.UnixMilli(msg.InternalDate).UTC(),
	}
	if msg.Payload == nil {
		return email
	}
	for _, h := range msg.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			email.From = h.Value
		case "to":
			email.To = h.Value
		case "subject":
			email.Subject = h.Value
		}
	}
	return email
}
