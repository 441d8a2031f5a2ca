// Package search builds reverse-image-search URLs for extracted frames.
// It only computes strings; opening them is left to the caller.
package search

import (
	"errors"
	"net/url"
	"strings"
)

// Engine is a reverse-image-search provider.
type Engine string

const (
	Google  Engine = "google"
	Yandex  Engine = "yandex"
	TinEye  Engine = "tineye"
	Archive Engine = "archive"
)

var ErrUnknownEngine = errors.New("unknown search engine")

// Engines lists every engine in gallery button order.
var Engines = []Engine{Google, Yandex, TinEye, Archive}

var endpoints = map[Engine]string{
	Google: "https://lens.google.com/uploadbyurl",
	Yandex: "https://yandex.com/images/search",
	TinEye: "https://tineye.com/search",
}

var buttonLabels = map[Engine]string{
	Google:  "بحث جوجل",
	Yandex:  "بحث ياندكس",
	TinEye:  "بحث TinEye",
	Archive: "أرشيف الإنترنت",
}

// ParseEngine resolves an engine name, case-insensitively.
func ParseEngine(s string) (Engine, error) {
	e := Engine(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := buttonLabels[e]; !ok {
		return "", ErrUnknownEngine
	}
	return e, nil
}

// Label returns the button text shown for the engine.
func (e Engine) Label() string {
	return buttonLabels[e]
}

// FullURL joins origin and a server-relative frame path.
func FullURL(origin, framePath string) string {
	return origin + framePath
}

// BuildURL returns the search URL for a frame on the given engine.
// Archive has no reverse-search endpoint and returns the frame URL itself.
func BuildURL(framePath, origin string, engine Engine) (string, error) {
	full := FullURL(origin, framePath)

	if engine == Archive {
		return full, nil
	}

	endpoint, ok := endpoints[engine]
	if !ok {
		return "", ErrUnknownEngine
	}

	q := url.Values{}
	q.Set("url", full)
	return endpoint + "?" + q.Encode(), nil
}
