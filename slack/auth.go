package slack

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// Authenticate checks the bot token with auth.test and returns the bot's user id.
func Authenticate(ctx context.Context, client *slack.Client) (string, error) {
	res, err := client.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("authenticating with slack: %w", err)
	}
	return res.UserID, nil
}
