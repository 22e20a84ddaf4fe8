package models

// Telegram Bot API wire types, limited to the fields this service reads.

// Update is one entry from getUpdates. Exactly one of the payload fields is
// set per update.
type Update struct {
	UpdateID   int64              `json:"update_id"`
	Message    *TelegramMessage   `json:"message,omitempty"`
	ChatMember *ChatMemberUpdated `json:"chat_member,omitempty"`
}

// TelegramMessage is a direct message to the bot.
type TelegramMessage struct {
	MessageID int64            `json:"message_id"`
	Chat      TelegramChat     `json:"chat"`
	From      *TelegramUser    `json:"from,omitempty"`
	Text      string           `json:"text,omitempty"`
	Contact   *TelegramContact `json:"contact,omitempty"`
}

type TelegramChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// TelegramContact is the payload of a shared-contact message. PhoneNumber is
// the number Telegram itself attests for the sharing account.
type TelegramContact struct {
	PhoneNumber string `json:"phone_number"`
	FirstName   string `json:"first_name,omitempty"`
	UserID      int64  `json:"user_id,omitempty"`
}

// ChatMemberUpdated is a channel membership change notification.
type ChatMemberUpdated struct {
	Chat          TelegramChat    `json:"chat"`
	From          TelegramUser    `json:"from"`
	NewChatMember ChatMember      `json:"new_chat_member"`
	InviteLink    *ChatInviteLink `json:"invite_link,omitempty"`
}

type ChatMember struct {
	Status string       `json:"status"`
	User   TelegramUser `json:"user"`
}

type ChatInviteLink struct {
	InviteLink  string `json:"invite_link"`
	MemberLimit int    `json:"member_limit,omitempty"`
	ExpireDate  int64  `json:"expire_date,omitempty"`
}
