package chat_test

import (
	"errors"
	"testing"

	"chat-service/chat"
	"chat-service/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendToOfflineReceiver(t *testing.T) {
	f := newFixture(t)
	f.user("a", "Alice")
	f.user("b", "Bob", func(u *model.User) { u.FCMToken = "device-b" })
	alice := f.connect("a")

	res := f.send("a", chat.SendMessageRequest{ReceiverID: "b", ChatType: model.ChatTypeContact, Content: "hello"})

	require.True(t, res.Created)
	assert.Equal(t, int64(1), f.count(&model.Message{}, "chat_id = ?", res.Chat.ID))

	got := alice.Named(chat.EventReceiveMessage)
	require.Len(t, got, 1)
	payload := got[0].(chat.ReceiveMessage)
	assert.Zero(t, payload.ChatScreenBody.UnreadCount)
	assert.Equal(t, "Bob", payload.ChatScreenBody.ChatName)
	assert.Equal(t, "b", payload.ChatScreenBody.ReceiverID)
	assert.Equal(t, "https://cdn.example.com/avatar.png", payload.ChatScreenBody.DisplayPicture)
	require.NotNil(t, payload.ChatScreenBody.IsDelivered)
	assert.False(t, *payload.ChatScreenBody.IsDelivered)
	assert.Equal(t, "Alice", payload.MessageScreenBody.Sender.Name)

	// sender is delivered and read, the offline receiver has nothing yet
	own := f.setting(res.Message.ID, "a")
	require.NotNil(t, own)
	assert.NotNil(t, own.DeliveredAt)
	assert.NotNil(t, own.ReadAt)
	assert.Nil(t, f.setting(res.Message.ID, "b"))
	assert.Empty(t, alice.Named(chat.EventDeliverResponse))

	// new chat notification and device push for the offline receiver
	assert.Equal(t, int64(1), f.count(&model.Notification{}, "recipient_id = ? AND title = ?", "b", "New Message"))
	require.Len(t, f.push.sent, 1)
	assert.Equal(t, "device-b", f.push.sent[0].Token)
	assert.Equal(t, "hello", f.push.sent[0].Body)
}

func TestSendToOnlineReceiver(t *testing.T) {
	f := newFixture(t)
	f.user("a", "Alice")
	f.user("b", "Bob")
	alice := f.connect("a")
	bob := f.connect("b")

	first := f.send("a", chat.SendMessageRequest{ReceiverID: "b", ChatType: model.ChatTypeContact, Content: "one"})
	second := f.send("a", chat.SendMessageRequest{ChatID: first.Chat.ID, ChatType: model.ChatTypeContact, Content: "two", ContentType: model.ContentImage})

	assert.False(t, second.Created)
	assert.Equal(t, first.Chat.ID, second.Chat.ID)

	got := bob.Named(chat.EventReceiveMessage)
	require.Len(t, got, 2)
	latest := got[1].(chat.ReceiveMessage)
	assert.Equal(t, int64(2), latest.ChatScreenBody.UnreadCount)
	assert.Equal(t, "Alice", latest.ChatScreenBody.ChatName)
	assert.Nil(t, latest.ChatScreenBody.IsRead)

	receipts := alice.Named(chat.EventDeliverResponse)
	require.Len(t, receipts, 2)
	assert.Equal(t, chat.DeliveryReceipt{
		Success:          true,
		ChatID:           first.Chat.ID,
		MessageID:        second.Message.ID,
		AllMsgsDelivered: true,
	}, receipts[1])

	st := f.setting(second.Message.ID, "b")
	require.NotNil(t, st)
	assert.NotNil(t, st.DeliveredAt)
	assert.Nil(t, st.ReadAt)
	assert.Empty(t, f.push.sent)
	f.assertDeliveryInvariant()
}

func TestServiceChatRequiresBooking(t *testing.T) {
	f := newFixture(t)
	f.user("a", "Alice")
	f.user("b", "Bob")

	_, err := f.svc.SendMessage(f.ctx, "a", chat.SendMessageRequest{ReceiverID: "b", ChatType: model.ChatTypeService, Content: "hi"})

	var perr *chat.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, chat.ErrBadRequest)
	assert.Zero(t, f.count(&model.Message{}, ""))
	assert.Zero(t, f.count(&model.Chat{}, ""))

	_, err = f.svc.SendMessage(f.ctx, "a", chat.SendMessageRequest{ReceiverID: "b", ChatType: model.ChatTypeService, BookingID: "missing"})
	assert.ErrorIs(t, err, chat.ErrNotFound)
	assert.Zero(t, f.count(&model.Chat{}, ""))
}

func TestServiceChatWithBooking(t *testing.T) {
	f := newFixture(t)
	f.user("a", "Alice")
	f.user("b", "Bob")
	booking := &model.Booking{CustomerID: "a", ProviderID: "b", Status: "confirmed"}
	require.NoError(t, f.bookings.Create(f.ctx, booking))

	res := f.send("a", chat.SendMessageRequest{ReceiverID: "b", ChatType: model.ChatTypeService, BookingID: booking.ID, Content: "about my booking"})

	require.NotNil(t, res.Message.BookingID)
	assert.Equal(t, booking.ID, *res.Message.BookingID)
	assert.Equal(t, model.ChatTypeService, res.Chat.ChatType)

	// a contact chat between the same pair is a different chat
	contact := f.send("a", chat.SendMessageRequest{ReceiverID: "b", ChatType: model.ChatTypeContact, Content: "hi"})
	assert.NotEqual(t, res.Chat.ID, contact.Chat.ID)
}

func TestSendRejectsMismatchedChatType(t *testing.T) {
	f := newFixture(t)
	f.user("a", "Alice")
	f.user("b", "Bob")
	booking := &model.Booking{CustomerID: "a", ProviderID: "b", Status: "confirmed"}
	require.NoError(t, f.bookings.Create(f.ctx, booking))

	contact := f.send("a", chat.SendMessageRequest{ReceiverID: "b", ChatType: model.ChatTypeContact, Content: "hi"})
	service := f.send("a", chat.SendMessageRequest{ReceiverID: "b", ChatType: model.ChatTypeService, BookingID: booking.ID, Content: "booking"})

	// a booking message cannot be smuggled into a contact chat
	_, err := f.svc.SendMessage(f.ctx, "a", chat.SendMessageRequest{ChatID: contact.Chat.ID, ChatType: model.ChatTypeService, BookingID: booking.ID, Content: "x"})
	var perr *chat.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Chat type does not match chat.", perr.Message)

	// nor can a service chat be written to without its booking
	_, err = f.svc.SendMessage(f.ctx, "b", chat.SendMessageRequest{ChatID: service.Chat.ID, ChatType: model.ChatTypeContact, Content: "y"})
	assert.ErrorIs(t, err, chat.ErrBadRequest)

	assert.Equal(t, int64(1), f.count(&model.Message{}, "chat_id = ?", contact.Chat.ID))
	assert.Equal(t, int64(1), f.count(&model.Message{}, "chat_id = ?", service.Chat.ID))
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	f.user("a", "Alice")
	f.user("b", "Bob")
	f.user("c", "Carol")
	res := f.send("a", chat.SendMessageRequest{ReceiverID: "b", ChatType: model.ChatTypeContact, Content: "hi"})

	cases := []struct {
		name   string
		sender string
		req    chat.SendMessageRequest
		kind   error
	}{
		{"missing chat type", "a", chat.SendMessageRequest{ReceiverID: "b"}, chat.ErrBadRequest},
		{"no receiver for non contact chat", "a", chat.SendMessageRequest{ChatType: "support"}, chat.ErrBadRequest},
		{"unknown content type", "a", chat.SendMessageRequest{ReceiverID: "b", ChatType: model.ChatTypeContact, ContentType: "sticker"}, chat.ErrBadRequest},
		{"unknown receiver", "a", chat.SendMessageRequest{ReceiverID: "ghost", ChatType: model.ChatTypeContact}, chat.ErrNotFound},
		{"caller outside chat", "c", chat.SendMessageRequest{ChatID: res.Chat.ID, ChatType: model.ChatTypeContact}, chat.ErrNotFound},
		{"receiver outside chat", "a", chat.SendMessageRequest{ChatID: res.Chat.ID, ReceiverID: "c", ChatType: model.ChatTypeContact}, chat.ErrBadRequest},
		{"unknown chat", "a", chat.SendMessageRequest{ChatID: "nope", ChatType: model.ChatTypeContact}, chat.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.SendMessage(f.ctx, tc.sender, tc.req)
			assert.ErrorIs(t, err, tc.kind)
		})
	}
	assert.Equal(t, int64(1), f.count(&model.Message{}, ""))
}

func TestSendToSelf(t *testing.T) {
	f := newFixture(t)
	f.user("a", "Alice")

	_, err := f.svc.SendMessage(f.ctx, "a", chat.SendMessageRequest{ReceiverID: "a", ChatType: model.ChatTypeContact, Content: "me"})

	assert.True(t, errors.Is(err, chat.ErrSelfChat))
	assert.Zero(t, f.count(&model.Chat{}, ""))
}

func TestContactWithoutReceiverGoesToPrimaryAdmin(t *testing.T) {
	f := newFixture(t)
	f.user("a", "Alice")
	f.user("admin-1", "Support", func(u *model.User) {
		u.Role = model.RoleAdmin
		u.AdminRole = model.AdminRolePrimary
	})
	f.user("sub-1", "Helper", func(u *model.User) {
		u.Role = model.RoleAdmin
		u.AdminRole = model.AdminRoleSub
	})

	res := f.send("a", chat.SendMessageRequest{ChatType: model.ChatTypeContact, Content: "help"})

	assert.ElementsMatch(t, []string{"a", "admin-1"}, res.Chat.ParticipantIDs())
}

func TestContactWithoutAdmin(t *testing.T) {
	f := newFixture(t)
	f.user("a", "Alice")

	_, err := f.svc.SendMessage(f.ctx, "a", chat.SendMessageRequest{ChatType: model.ChatTypeContact, Content: "help"})
	assert.ErrorIs(t, err, chat.ErrNotFound)
}

func TestSendImplicitlyReadsEarlierMessages(t *testing.T) {
	f := newFixture(t)
	f.user("a", "Alice")
	f.user("b", "Bob")
	alice := f.connect("a")
	f.connect("b")

	first := f.send("a", chat.SendMessageRequest{ReceiverID: "b", ChatType: model.ChatTypeContact, Content: "ping"})
	f.send("b", chat.SendMessageRequest{ChatID: first.Chat.ID, ChatType: model.ChatTypeContact, Content: "pong"})

	st := f.setting(first.Message.ID, "b")
	require.NotNil(t, st)
	assert.NotNil(t, st.ReadAt)
	receipts := alice.Named(chat.EventReadResponse)
	require.Len(t, receipts, 1)
	assert.Equal(t, chat.ReadReceipt{Success: true, ChatID: first.Chat.ID, AllMsgsRead: true}, receipts[0])
	f.assertDeliveryInvariant()
}

func TestNotificationBody(t *testing.T) {
	cases := map[string]model.Message{
		"Image shared":         {ContentType: model.ContentImage},
		"Video shared":         {ContentType: model.ContentVideo},
		"Audio shared":         {ContentType: model.ContentAudio},
		"File shared":          {ContentType: model.ContentFile},
		"Link shared":          {ContentType: model.ContentLink, Content: "https://example.com"},
		"Contact shared: Dana": {ContentType: model.ContentContact, ContentTitle: "Dana"},
		"see you":              {ContentType: model.ContentText, Content: "see you"},
		"New message":          {ContentType: model.ContentText},
	}
	for want, msg := range cases {
		msg := msg
		assert.Equal(t, want, chat.NotificationBody(&msg))
	}
}
