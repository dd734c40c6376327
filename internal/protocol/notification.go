package protocol

// Notification kinds delivered over the push channel, plus the subscribe
// document the client sends after connecting.
const (
	NotifyNewMessage = "new_message"
	NotifyUserJoined = "user_joined"
	NotifyUserLeft   = "user_left"
	TypeSubscribe    = "subscribe"
)

// Notification is a tagged push document. Type selects the variant:
// new_message carries Message, user_joined/user_left carry User.
type Notification struct {
	Type    string   `json:"type"`
	User    string   `json:"user,omitempty"`
	Message *Message `json:"message,omitempty"`
}

// Subscribe is the first document the client writes on the push channel,
// registering the username notifications should be delivered for.
type Subscribe struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

// NewSubscribe builds a subscribe document for the given user.
func NewSubscribe(username string) Subscribe {
	return Subscribe{Type: TypeSubscribe, Username: Normalize(username)}
}
