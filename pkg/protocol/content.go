package protocol

import "mime"

// ContentType is the media type of call and reply bodies.
const ContentType = "application/x-postboard-rpc"

// CheckContentType reports whether a Content-Type header value names
// ContentType. Parameters such as charset are ignored.
func CheckContentType(header string) bool {
	if header == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return false
	}
	return mediaType == ContentType
}
