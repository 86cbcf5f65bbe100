package model

import "fmt"

// Message represents a single conversational turn exchanged with a model.
// Content carries plain text; Blocks carries mixed text/image content for
// multimodal user turns. When Blocks is non-empty it takes precedence over
// Content at the provider boundary.
type Message struct {
	Role      string
	Content   string
	Blocks    []ContentBlock
	ToolCalls []ToolCall
	// Usage carries the provider-reported token counts for the API call that
	// produced this message. Zero on user/tool messages.
	Usage TokenUsage
}

// ToolCall captures a tool invocation emitted by assistant messages. On
// tool-result messages the same structure correlates the result back to the
// originating call through ID.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Block content types.
const (
	BlockText  = "text"
	BlockImage = "image"
)

// ContentBlock is one typed unit inside a multimodal message. Image blocks
// hold the raw bytes base64-encoded plus the MIME type guessed from the
// source file extension.
type ContentBlock struct {
	Type      string
	Text      string
	MediaType string
	Data      string
}

// TextBlock builds a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ImageBlock builds an inline-image content block from base64 data.
func ImageBlock(mediaType, b64 string) ContentBlock {
	return ContentBlock{Type: BlockImage, MediaType: mediaType, Data: b64}
}

// DataURI renders an image block as a data: URI, the form expected by
// OpenAI-style image_url parts.
func (b ContentBlock) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", b.MediaType, b.Data)
}
