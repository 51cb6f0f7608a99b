package mqtt

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Acknowledgment transports.
const (
	SourceMQTT   = "mqtt"
	SourceButton = "button"
)

// maxSourceLen bounds the client-supplied source echoed in alerts.
const maxSourceLen = 64

// AckHandler is called once for every message received on the ack topic.
// source is the sender-supplied origin, or SourceMQTT.
type AckHandler func(source string)

// ackPayload is the optional JSON body of an acknowledgment.
type ackPayload struct {
	Source string `json:"source"`
}

// ParseAck extracts the acknowledgment origin from payload. Any payload is a
// valid acknowledgment; a JSON object with a non-empty "source" names it.
func ParseAck(payload []byte) string {
	var ack ackPayload
	if err := json.Unmarshal(payload, &ack); err != nil {
		return SourceMQTT
	}
	source := strings.TrimSpace(ack.Source)
	if source == "" {
		return SourceMQTT
	}
	if len(source) > maxSourceLen {
		// Cut on a rune boundary so the echoed source stays valid UTF-8.
		n := maxSourceLen
		for n > 0 && !utf8.RuneStart(source[n]) {
			n--
		}
		source = source[:n]
	}
	return source
}
