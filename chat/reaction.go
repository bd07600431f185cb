package chat

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"chat-service/model"
	"chat-service/repository"

	"github.com/google/uuid"
)

const maxEmojiLength = 32

func validateEmoji(emoji string) (string, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return "", badRequest("Emoji is required.")
	}
	if utf8.RuneCountInString(emoji) > maxEmojiLength {
		return "", badRequest("Emoji is too long.")
	}
	return emoji, nil
}

// reactionTarget loads the message and its chat and checks userID takes
// part in it.
func (s *Service) reactionTarget(ctx context.Context, messageID, userID string) (*model.Message, *model.Chat, error) {
	if messageID == "" {
		return nil, nil, badRequest("Message id is required.")
	}
	msg, err := s.messages.FindByID(ctx, messageID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, notFound("Message not found.")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find message: %w", err)
	}
	chat, err := s.chats.FindByID(ctx, msg.ChatID)
	if err != nil {
		return nil, nil, fmt.Errorf("find chat: %w", err)
	}
	if !chat.HasParticipant(userID) {
		return nil, nil, forbidden("You are not a participant of this chat.")
	}
	return msg, chat, nil
}

// AddOrReplaceReaction records userID's emoji on a message. A user holds at
// most one reaction per message; a second call replaces the emoji.
func (s *Service) AddOrReplaceReaction(ctx context.Context, userID, messageID, emoji string) (*ReactionUpdate, error) {
	emoji, err := validateEmoji(emoji)
	if err != nil {
		return nil, err
	}
	msg, chat, err := s.reactionTarget(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}

	counts, err := s.reactions.Upsert(ctx, &model.Reaction{
		ID:         uuid.NewString(),
		ObjectID:   msg.ID,
		ObjectType: model.ReactionOnMessage,
		UserID:     userID,
		Emoji:      emoji,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Message not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("save reaction: %w", err)
	}

	update := s.reactionUpdate(ctx, chat, msg, userID, emoji, counts)
	for _, id := range chat.ParticipantIDs() {
		s.emit(id, EventReaction, update)
	}
	return update, nil
}

func (s *Service) RemoveReaction(ctx context.Context, userID, messageID, emoji string) (*ReactionUpdate, error) {
	emoji, err := validateEmoji(emoji)
	if err != nil {
		return nil, err
	}
	msg, chat, err := s.reactionTarget(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}

	counts, err := s.reactions.Delete(ctx, msg.ID, userID, emoji)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Reaction not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("delete reaction: %w", err)
	}

	update := s.reactionUpdate(ctx, chat, msg, userID, emoji, counts)
	for _, id := range chat.ParticipantIDs() {
		s.emit(id, EventRemoveReaction, update)
	}
	return update, nil
}

func (s *Service) reactionUpdate(ctx context.Context, chat *model.Chat, msg *model.Message, userID, emoji string, counts map[string]int) *ReactionUpdate {
	update := &ReactionUpdate{
		ChatID:         chat.ID,
		MessageID:      msg.ID,
		Emoji:          emoji,
		UserID:         userID,
		ReactionsCount: counts,
		Reactions:      []Reactor{},
	}
	details, err := s.reactions.ListForMessage(ctx, msg.ID)
	if err != nil {
		s.log.Warn("list reactions", "message_id", msg.ID, "error", err)
		return update
	}
	for _, d := range details {
		u := model.User{ID: d.UserID, FullName: d.FullName, FirstName: d.FirstName, LastName: d.LastName}
		picture := d.ProfilePicture
		if picture == "" {
			picture = s.defaultAvatar
		}
		update.Reactions = append(update.Reactions, Reactor{
			UserID:         d.UserID,
			UserName:       u.DisplayName(),
			ProfilePicture: picture,
			Emoji:          d.Emoji,
		})
	}
	return update
}

// VerifyReactionCounts reports whether the cached counts on the message match
// its reaction rows.
func (s *Service) VerifyReactionCounts(ctx context.Context, messageID string) (bool, error) {
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return false, err
	}
	actual, err := s.reactions.Counts(ctx, messageID)
	if err != nil {
		return false, err
	}
	cached := msg.ReactionsCount
	if len(cached) == 0 && len(actual) == 0 {
		return true, nil
	}
	return reflect.DeepEqual(cached, actual), nil
}
