package rooms

import (
	"baseroom/store"
	"fmt"
	"strings"

	"github.com/rivo/uniseg"
)

const (
	maxNameLength  = 200
	maxTopicLength = 200
	maxBodyLength  = 10000
)

// RoomInput carries the room form fields.
type RoomInput struct {
	Topic       string `form:"topic" json:"topic"`
	Name        string `form:"name" json:"name"`
	Description string `form:"description" json:"description"`
}

// Normalize trims the fields and checks them. Lengths are counted in grapheme
// clusters, so an emoji with modifiers counts once.
func (in *RoomInput) Normalize() error {
	in.Topic = strings.TrimSpace(in.Topic)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	if in.Topic == "" {
		return store.Invalid("topic", "This field is required.")
	}
	if n := uniseg.GraphemeClusterCount(in.Topic); n > maxTopicLength {
		return store.Invalid("topic", fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", maxTopicLength, n))
	}
	if in.Name == "" {
		return store.Invalid("name", "This field is required.")
	}
	if n := uniseg.GraphemeClusterCount(in.Name); n > maxNameLength {
		return store.Invalid("name", fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", maxNameLength, n))
	}
	return nil
}

func normalizeBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", store.Invalid("body", "This field is required.")
	}
	if n := uniseg.GraphemeClusterCount(body); n > maxBodyLength {
		return "", store.Invalid("body", fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", maxBodyLength, n))
	}
	return body, nil
}
