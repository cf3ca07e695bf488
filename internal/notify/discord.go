package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// DiscordMessenger sends messages through a Discord bot session.
type DiscordMessenger struct {
	session *discordgo.Session
}

// NewDiscordMessenger opens a bot session with the given token.
func NewDiscordMessenger(token string) (*DiscordMessenger, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("connecting to discord: %w", err)
	}
	return &DiscordMessenger{session: session}, nil
}

// Send posts one message to a channel. The context is accepted for
// interface symmetry; discordgo manages its own request lifecycle.
func (m *DiscordMessenger) Send(_ context.Context, channelID, content string) error {
	_, err := m.session.ChannelMessageSend(channelID, content)
	return err
}

func (m *DiscordMessenger) Close() error {
	return m.session.Close()
}
