package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixLayer        = "lyr"
	PrefixMarker       = "mkr"
	PrefixNotification = "ntf"
	PrefixMessage      = "msg"
	PrefixAsset        = "ast"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewLayerID() string        { return New(PrefixLayer) }
func NewMarkerID() string       { return New(PrefixMarker) }
func NewNotificationID() string { return New(PrefixNotification) }
func NewMessageID() string      { return New(PrefixMessage) }
func NewAssetID() string        { return New(PrefixAsset) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
