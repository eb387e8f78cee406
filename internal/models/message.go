package models

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prior turn submitted with a chat request. Only role and
// content travel on the wire; assistant-side thinking text stays client
// local.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Valid reports whether the message carries a known role and content.
func (m Message) Valid() bool {
	return (m.Role == RoleUser || m.Role == RoleAssistant) && m.Content != ""
}
