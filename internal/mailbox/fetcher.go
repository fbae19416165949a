package mailbox

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ignite/domain-performance/internal/config"
	"github.com/ignite/domain-performance/internal/pkg/logger"
)

const maxMessages = 10

// Fetcher finds the newest report attachment in the mailbox.
type Fetcher struct {
	client        *Client
	subjectFilter string
	lookbackDays  int
}

// NewFetcher creates a mailbox fetcher from config.
func NewFetcher(ctx context.Context, cfg config.GmailConfig) *Fetcher {
	return &Fetcher{
		client:        NewClient(ctx, cfg),
		subjectFilter: cfg.SubjectFilter,
		lookbackDays:  cfg.LookbackDays,
	}
}

// Name identifies this fetcher in logs and metrics labels.
func (f *Fetcher) Name() string { return "mailbox" }

// Fetch lists recent messages with attachments, walks them newest
// first, and returns the first CSV attachment found, gunzipped when the
// filename says so.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	query := f.searchQuery()
	refs, err := f.client.ListMessages(ctx, query, maxMessages)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("no messages found for query: %s", query)
	}

	for _, ref := range refs {
		msg, err := f.client.GetMessage(ctx, ref.ID)
		if err != nil {
			logger.Warn("Skipping unreadable message", "message_id", ref.ID, "error", err.Error())
			continue
		}
		part := findReportPart(msg.Payload.Parts)
		if part == nil {
			continue
		}

		var content []byte
		if part.Body.AttachmentID != "" {
			content, err = f.client.GetAttachment(ctx, msg.ID, part.Body.AttachmentID)
		} else {
			content, err = decodeBase64URL(part.Body.Data)
		}
		if err != nil {
			logger.Warn("Skipping unreadable attachment",
				"message_id", ref.ID, "filename", part.Filename, "error", err.Error())
			continue
		}

		if strings.HasSuffix(strings.ToLower(part.Filename), ".gz") {
			content, err = gunzip(content)
			if err != nil {
				return nil, fmt.Errorf("decompressing %s: %w", part.Filename, err)
			}
		}
		logger.Info("Report attachment fetched",
			"message_id", ref.ID, "filename", part.Filename, "bytes", len(content))
		return content, nil
	}
	return nil, fmt.Errorf("no CSV attachment found in last %d messages", len(refs))
}

func (f *Fetcher) searchQuery() string {
	days := f.lookbackDays
	if days <= 0 {
		days = 7
	}
	if f.subjectFilter == "" {
		return fmt.Sprintf("has:attachment newer_than:%dd", days)
	}
	subject := strings.ReplaceAll(f.subjectFilter, `"`, `\"`)
	return fmt.Sprintf(`subject:"%s" has:attachment newer_than:%dd`, subject, days)
}

// findReportPart walks the MIME tree and returns the first part whose
// filename looks like a CSV (.csv, .csv.gz or .gz) and carries data.
func findReportPart(parts []MessagePart) *MessagePart {
	for i := range parts {
		p := &parts[i]
		lower := strings.ToLower(strings.TrimSpace(p.Filename))
		if lower != "" && (strings.HasSuffix(lower, ".csv") || strings.HasSuffix(lower, ".gz")) {
			if p.Body.AttachmentID != "" || p.Body.Data != "" {
				return p
			}
		}
		if found := findReportPart(p.Parts); found != nil {
			return found
		}
	}
	return nil
}

func gunzip(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()
	return io.ReadAll(gr)
}
