package telegram

import (
	"slices"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/dukhota/internal/message"
)

// ToAttributes extracts the matching attributes of a Telegram message.
// The author is the sender chat when present (channel posts), otherwise the
// sending user. Forward origins fill the forwarded-from fields.
func ToAttributes(msg *models.Message) message.Attributes {
	if msg == nil {
		return message.Attributes{}
	}

	attrs := message.Attributes{
		ChannelID: message.ID(msg.Chat.ID),
		MessageID: message.ID(int64(msg.ID)),
		Text:      msg.Text,
		Caption:   msg.Caption,
		MediaIDs:  mediaIDs(msg),
	}

	switch {
	case msg.SenderChat != nil:
		attrs.FromID = message.ID(msg.SenderChat.ID)
	case msg.From != nil:
		attrs.FromID = message.ID(msg.From.ID)
	}

	if origin := msg.ForwardOrigin; origin != nil {
		switch {
		case origin.MessageOriginChannel != nil:
			ch := origin.MessageOriginChannel
			attrs.FromChannelID = message.ID(ch.Chat.ID)
			attrs.FromMessageID = message.ID(int64(ch.MessageID))
			attrs.ForwardFromID = message.ID(ch.Chat.ID)
		case origin.MessageOriginChat != nil:
			attrs.ForwardFromID = message.ID(origin.MessageOriginChat.SenderChat.ID)
		case origin.MessageOriginUser != nil:
			attrs.ForwardFromID = message.ID(origin.MessageOriginUser.SenderUser.ID)
		}
	}

	return attrs
}

// ToMessage converts a Telegram message into a comparable post.
func ToMessage(msg *models.Message) (*message.Message, error) {
	return message.New(ToAttributes(msg))
}

// mediaIDs lists the unique file ids of the attached media. Only the largest
// photo size is used since all sizes share one picture.
func mediaIDs(msg *models.Message) []string {
	var ids []string

	if n := len(msg.Photo); n > 0 {
		largest := msg.Photo[0]
		for _, p := range msg.Photo[1:] {
			if p.Width*p.Height > largest.Width*largest.Height {
				largest = p
			}
		}
		ids = appendID(ids, largest.FileUniqueID)
	}
	if msg.Video != nil {
		ids = appendID(ids, msg.Video.FileUniqueID)
	}
	if msg.Animation != nil {
		ids = appendID(ids, msg.Animation.FileUniqueID)
	}
	if msg.Document != nil {
		ids = appendID(ids, msg.Document.FileUniqueID)
	}
	if msg.Audio != nil {
		ids = appendID(ids, msg.Audio.FileUniqueID)
	}
	if msg.Voice != nil {
		ids = appendID(ids, msg.Voice.FileUniqueID)
	}
	if msg.VideoNote != nil {
		ids = appendID(ids, msg.VideoNote.FileUniqueID)
	}
	if msg.Sticker != nil {
		ids = appendID(ids, msg.Sticker.FileUniqueID)
	}

	return ids
}

// appendID skips empty and repeated ids; an animation also arrives as a
// document carrying the same file.
func appendID(ids []string, id string) []string {
	if id == "" || slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}
