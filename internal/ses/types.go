package ses

// Message is one notice email. The member is the only To recipient and the
// workshift manager is copied.
type Message struct {
	To          string
	Cc          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Attachment is a file sent with a Message.
type Attachment struct {
	FileName    string
	ContentType string
	Data        []byte
}
