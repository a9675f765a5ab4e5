package schema

// ConversationID identifies a conversation thread.
type ConversationID string

// MessageID identifies a message within a conversation.
type MessageID string

// ProfileID identifies an assistant profile.
type ProfileID string

// TabID identifies one live tab of the application. Generated at tab
// startup, unique for the life of the process, never reused.
type TabID string

// DefaultProfileID is the sentinel profile used when none is given.
const DefaultProfileID ProfileID = "default"

// DefaultInterfaceType tags requests issued by the web client.
const DefaultInterfaceType = "web"
