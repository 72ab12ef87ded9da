package testutil

import (
	"strings"
	"sync"

	telebot "gopkg.in/telebot.v3"
)

// Sent is one outgoing message captured by FakeContext.
type Sent struct {
	Text    string
	Options []any
}

// Markup returns the reply markup passed with the message, if any.
func (s Sent) Markup() *telebot.ReplyMarkup {
	for _, opt := range s.Options {
		if m, ok := opt.(*telebot.ReplyMarkup); ok {
			return m
		}
	}
	return nil
}

// FakeContext is an in-memory telebot.Context. Methods that are not overridden panic
// through the nil embedded interface.
type FakeContext struct {
	telebot.Context

	mu        sync.Mutex
	update    telebot.Update
	sender    *telebot.User
	store     map[string]any
	sent      []Sent
	responded int
	deleted   bool
	// SendErr is returned by Send when set.
	SendErr error
}

// NewMessage builds a context for a text message from the given user.
func NewMessage(updateID int, userID int64, text string) *FakeContext {
	sender := &telebot.User{ID: userID, FirstName: "Matti", LanguageCode: "fi"}
	return &FakeContext{
		update: telebot.Update{
			ID: updateID,
			Message: &telebot.Message{
				ID:     updateID,
				Sender: sender,
				Chat:   &telebot.Chat{ID: userID},
				Text:   text,
			},
		},
		sender: sender,
		store:  make(map[string]any),
	}
}

// NewCallback builds a context for an inline button press.
func NewCallback(updateID int, userID int64, data string) *FakeContext {
	sender := &telebot.User{ID: userID, FirstName: "Matti", LanguageCode: "fi"}
	return &FakeContext{
		update: telebot.Update{
			ID: updateID,
			Callback: &telebot.Callback{
				ID:     "cb",
				Sender: sender,
				Data:   data,
				Message: &telebot.Message{
					ID:   updateID,
					Chat: &telebot.Chat{ID: userID},
				},
			},
		},
		sender: sender,
		store:  make(map[string]any),
	}
}

// WithLanguage overrides the sender's language code.
func (c *FakeContext) WithLanguage(code string) *FakeContext {
	c.sender.LanguageCode = code
	return c
}

func (c *FakeContext) Update() telebot.Update      { return c.update }
func (c *FakeContext) Message() *telebot.Message   { return c.update.Message }
func (c *FakeContext) Callback() *telebot.Callback { return c.update.Callback }
func (c *FakeContext) Sender() *telebot.User       { return c.sender }

func (c *FakeContext) Chat() *telebot.Chat {
	if m := c.update.Message; m != nil {
		return m.Chat
	}
	if cb := c.update.Callback; cb != nil && cb.Message != nil {
		return cb.Message.Chat
	}
	return nil
}

func (c *FakeContext) Text() string {
	if m := c.update.Message; m != nil {
		return m.Text
	}
	return ""
}

func (c *FakeContext) Data() string {
	if cb := c.update.Callback; cb != nil {
		return cb.Data
	}
	return ""
}

func (c *FakeContext) Args() []string {
	fields := strings.Fields(c.Text())
	if len(fields) < 2 {
		return nil
	}
	return fields[1:]
}

func (c *FakeContext) Send(what any, opts ...any) error {
	if c.SendErr != nil {
		return c.SendErr
	}
	text, _ := what.(string)

	c.mu.Lock()
	c.sent = append(c.sent, Sent{Text: text, Options: opts})
	c.mu.Unlock()
	return nil
}

func (c *FakeContext) Reply(what any, opts ...any) error {
	return c.Send(what, opts...)
}

func (c *FakeContext) Respond(...*telebot.CallbackResponse) error {
	c.mu.Lock()
	c.responded++
	c.mu.Unlock()
	return nil
}

func (c *FakeContext) Delete() error {
	c.mu.Lock()
	c.deleted = true
	c.mu.Unlock()
	return nil
}

func (c *FakeContext) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

func (c *FakeContext) Set(key string, value any) {
	c.mu.Lock()
	c.store[key] = value
	c.mu.Unlock()
}

// SentMessages returns every captured message.
func (c *FakeContext) SentMessages() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// SentTexts returns the text of every captured message.
func (c *FakeContext) SentTexts() []string {
	msgs := c.SentMessages()
	texts := make([]string, len(msgs))
	for i, m := range msgs {
		texts[i] = m.Text
	}
	return texts
}

// LastText returns the most recent message text, or an empty string.
func (c *FakeContext) LastText() string {
	texts := c.SentTexts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

// Responded reports how many times the callback was answered.
func (c *FakeContext) Responded() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.responded
}

// Deleted reports whether the message that triggered the update was deleted.
func (c *FakeContext) Deleted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleted
}
