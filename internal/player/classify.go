package player

import "strings"

// Classify picks the backend for a URL.  The first matching rule wins and anything unrecognised is treated as a
// direct link, so classification never fails.  Whether the chosen backend can actually play the URL is decided later
// by its validator.
func Classify(url string) BackendID {
	switch {
	case strings.Contains(url, "youtu.be"), strings.Contains(url, "youtube.com"):
		return VideoEmbed
	case strings.Contains(url, "soundcloud.com"):
		return StreamingWidget
	case strings.Contains(url, "dropbox.com"), strings.Contains(url, "dropboxusercontent.com"):
		return CloudFile
	default:
		return DirectLink
	}
}
