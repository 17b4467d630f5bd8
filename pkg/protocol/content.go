package protocol

// Content types
const (
	ContentTypeText     = "text"
	ContentTypeImage    = "image"
	ContentTypeAudio    = "audio"
	ContentTypeResource = "resource"
)

// Content is a content block inside tool results and prompt messages.
// Binary blocks carry base64 Data with a MimeType.
type Content struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	Data     string            `json:"data,omitempty"`
	MimeType string            `json:"mimeType,omitempty"`
	Resource *ResourceContents `json:"resource,omitempty"`
}

// NewTextContent creates a text content block
func NewTextContent(text string) Content {
	return Content{Type: ContentTypeText, Text: text}
}

// IsText reports whether the block is a text block
func (c Content) IsText() bool {
	return c.Type == ContentTypeText
}

// HasData reports whether the block carries an inline base64 payload
func (c Content) HasData() bool {
	return c.Data != ""
}
