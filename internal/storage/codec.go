package storage

import (
	"bytes"
	"encoding/json"

	logx "castbot/pkg/logx"
)

// decodeHistory parses a stored document. Empty input is an empty history;
// anything unparseable is logged and also treated as empty so one bad write
// never blocks the pipeline.
func decodeHistory(raw []byte, log logx.Logger) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Warn("history document is corrupt; starting empty", logx.Err(err), logx.Int("bytes", len(raw)))
		return []string{}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func encodeHistory(h []string) ([]byte, error) {
	if h == nil {
		h = []string{}
	}
	return json.Marshal(h)
}
