// Package notify announces gamma changes, to Discord when configured and to
// the log otherwise.
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/lornebot/torstats/internal/database"
	"github.com/lornebot/torstats/internal/gamma"
)

// Messenger delivers one message to one channel. DiscordMessenger satisfies
// it; tests script it.
type Messenger interface {
	Send(ctx context.Context, channelID, content string) error
}

// tierMessages maps each announcement threshold to its celebration line.
// The %s is the mention for the transcriber.
var tierMessages = map[int64]string{
	51:   "Congrats to %s for their green flair!",
	101:  "Teal flair? Not bad, %s!",
	251:  "%s got purple flair, amazing!",
	501:  "Give it up for the new owner of golden flair, %s!",
	1001: "Holy guacamole, %s earned their diamond flair!",
	2501: "Ruby flair! %s, that is absolutely amazing!",
	5000: "We don't even have a flair name for this yet, %s! Congratulations for being one of the first.",
}

// Announcer posts gamma changes to a channel.
type Announcer struct {
	messenger Messenger
	channelID string
}

func NewAnnouncer(messenger Messenger, channelID string) *Announcer {
	return &Announcer{messenger: messenger, channelID: channelID}
}

// GammaChanged announces an increase: one headline message, then one line
// per rank threshold the jump crossed. oldGamma is nil on the first reading.
func (a *Announcer) GammaChanged(ctx context.Context, t database.Transcriber, oldGamma *int64, newGamma int64) error {
	mention := Mention(t)

	var headline string
	if oldGamma != nil {
		headline = fmt.Sprintf("%s got from %dΓ to %dΓ", mention, *oldGamma, newGamma)
	} else {
		headline = fmt.Sprintf("%s just got found! They have %dΓ", mention, newGamma)
	}
	if err := a.messenger.Send(ctx, a.channelID, headline); err != nil {
		return fmt.Errorf("sending gamma announcement: %w", err)
	}

	var old int64
	if oldGamma != nil {
		old = *oldGamma
	}
	for _, threshold := range gamma.CrossedThresholds(old, newGamma) {
		line := fmt.Sprintf(tierMessages[threshold], mention)
		if err := a.messenger.Send(ctx, a.channelID, line); err != nil {
			return fmt.Errorf("sending rank announcement: %w", err)
		}
	}
	return nil
}

// Mention renders a transcriber as a Discord mention when their account is
// linked, and as a reddit handle otherwise.
func Mention(t database.Transcriber) string {
	if t.DiscordID != nil && *t.DiscordID != "" {
		return fmt.Sprintf("<@%s>", *t.DiscordID)
	}
	return "/u/" + t.Name
}

// LogNotifier writes announcements to the log. It stands in for the
// Announcer when no Discord token is configured.
type LogNotifier struct{}

func (LogNotifier) GammaChanged(_ context.Context, t database.Transcriber, oldGamma *int64, newGamma int64) error {
	if oldGamma != nil {
		log.Printf("announce: %s got from %dΓ to %dΓ", Mention(t), *oldGamma, newGamma)
	} else {
		log.Printf("announce: %s just got found! They have %dΓ", Mention(t), newGamma)
	}
	return nil
}
