package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veritaslabs/cogito/domain/service"
)

// consoleService is a communication service that writes utterances to the
// CLI's output and keeps them in memory so observe rounds can read the
// conversation back.
type consoleService struct {
	mu       sync.Mutex
	out      io.Writer
	messages map[string][]service.Message
}

var _ service.CommunicationService = (*consoleService)(nil)

// newConsoleService creates a console communication service over the given
// writer.
func newConsoleService(out io.Writer) *consoleService {
	return &consoleService{
		out:      out,
		messages: make(map[string][]service.Message),
	}
}

func (c *consoleService) SendMessage(_ context.Context, channelID, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages[channelID] = append(c.messages[channelID], service.Message{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		AuthorID:  "cogito",
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})

	_, err := fmt.Fprintf(c.out, "[%s] %s\n", channelID, content)
	return err
}

func (c *consoleService) FetchMessages(_ context.Context, channelID string, limit int) ([]service.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := c.messages[channelID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]service.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}
