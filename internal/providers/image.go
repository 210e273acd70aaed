package providers

import (
	"encoding/json"
	"strings"
)

// ImagePayload is the serialized form a user message takes when an
// image rides along with the text. Conversation storage keeps message
// content as a single string, so the pair travels as a small JSON
// document and adapters unpack it when building the wire shape.
type ImagePayload struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

// EncodeImagePayload packs text and an image (a data URL or raw
// base64) into the stored content form.
func EncodeImagePayload(text, image string) string {
	b, _ := json.Marshal(ImagePayload{Text: text, Image: image})
	return string(b)
}

// DecodeImagePayload reports whether content is a stored image payload
// and unpacks it. Plain text is left alone, including text that merely
// looks like JSON without the expected text key.
func DecodeImagePayload(content string) (ImagePayload, bool) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") {
		return ImagePayload{}, false
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return ImagePayload{}, false
	}
	if _, ok := raw["text"]; !ok {
		return ImagePayload{}, false
	}
	var p ImagePayload
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
		return ImagePayload{}, false
	}
	return p, true
}

// FlattenContent renders stored content as plain text for wire formats
// that cannot carry image parts. An attached image is reduced to a
// short note so the model knows something was dropped.
func FlattenContent(content string) string {
	p, ok := DecodeImagePayload(content)
	if !ok {
		return content
	}
	if p.Image == "" {
		return p.Text
	}
	return p.Text + " [User attached an image - vision is not supported by this provider]"
}
