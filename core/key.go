package core

import "fmt"

// ConversationKey is the stable identity of a stateful conversation. It is
// established on the first turn and never mutated afterwards; its string form
// addresses the conversation's SessionState in a SessionStore.
type ConversationKey struct {
	App     string `json:"app"`
	User    string `json:"user"`
	Session string `json:"session"`
}

// NewConversationKey assembles a key from its three identity components.
func NewConversationKey(app, user, session string) ConversationKey {
	return ConversationKey{App: app, User: user, Session: session}
}

// String returns the canonical "app/user/session" store key.
func (k ConversationKey) String() string {
	return k.App + "/" + k.User + "/" + k.Session
}

// Validate reports a configuration error when any identity component is empty.
func (k ConversationKey) Validate() error {
	if k.App == "" || k.User == "" || k.Session == "" {
		return fmt.Errorf("conversation key requires app, user and session, got %q", k.String())
	}
	return nil
}
