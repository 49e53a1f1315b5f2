// Package avatar derives letter avatars: a single initial on a background
// color chosen deterministically from the display name.
package avatar

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MarkerPrefix  = "letter-avatar:"
	fallbackLabel = "?"
)

// Palette is indexed by the first character's code point modulo its length.
var Palette = [8]string{
	"bg-red-500",
	"bg-orange-500",
	"bg-amber-500",
	"bg-green-500",
	"bg-teal-500",
	"bg-blue-500",
	"bg-indigo-500",
	"bg-pink-500",
}

type Avatar struct {
	Letter     string `json:"letter"`
	ColorClass string `json:"colorClass"`
}

// Derive returns the avatar for name. Leading whitespace is ignored; an empty
// name yields "?" on the first palette color.
func Derive(name string) Avatar {
	name = strings.TrimSpace(name)
	r, _ := utf8.DecodeRuneInString(name)
	if name == "" || r == utf8.RuneError {
		return Avatar{Letter: fallbackLabel, ColorClass: Palette[0]}
	}

	return Avatar{
		Letter:     string(unicode.ToUpper(r)),
		ColorClass: Palette[int(r)%len(Palette)],
	}
}

// Marker encodes a as the stand-in image URL "letter-avatar:<letter>:<color>".
func (a Avatar) Marker() string {
	return MarkerPrefix + a.Letter + ":" + a.ColorClass
}

// ParseMarker decodes a marker produced by Marker.
func ParseMarker(s string) (Avatar, bool) {
	rest, ok := strings.CutPrefix(s, MarkerPrefix)
	if !ok {
		return Avatar{}, false
	}
	letter, color, ok := strings.Cut(rest, ":")
	if !ok || letter == "" || color == "" {
		return Avatar{}, false
	}
	return Avatar{Letter: letter, ColorClass: color}, true
}

// Image is what a profile should render: either a real URL or a letter avatar.
type Image struct {
	URL    string  `json:"url,omitempty"`
	Letter *Avatar `json:"letterAvatar,omitempty"`
}

// Resolve picks the representation for a stored image value. Markers are
// decoded, an empty value is derived inline from name, anything else is a URL.
func Resolve(image, name string) Image {
	if image == "" {
		a := Derive(name)
		return Image{Letter: &a}
	}
	if a, ok := ParseMarker(image); ok {
		return Image{Letter: &a}
	}
	return Image{URL: image}
}
