package profiles

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// JSONFile reads the legacy users.json layout: an object keyed by user id
// whose values carry sex, type, age, height, body and location. The file is
// re-read on every call so edits apply without a restart.
type JSONFile struct {
	path string
}

func NewJSONFile(path string) *JSONFile { return &JSONFile{path: path} }

func (*JSONFile) Close() error { return nil }

type jsonProfile struct {
	Name     looseString `json:"name"`
	Sex      looseString `json:"sex"`
	Type     looseString `json:"type"`
	Age      looseString `json:"age"`
	Height   looseString `json:"height"`
	Body     looseString `json:"body"`
	Location looseString `json:"location"`
}

// looseString accepts JSON strings and numbers.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	*s = looseString(b)
	return nil
}

func (f *JSONFile) Profiles(ctx context.Context) ([]Profile, error) {
	_ = ctx
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	var m map[string]jsonProfile
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}

	out := make([]Profile, 0, len(m))
	for key, jp := range m {
		id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, Profile{
			ID:       id,
			Name:     string(jp.Name),
			Sex:      string(jp.Sex),
			LookType: string(jp.Type),
			AgeRange: string(jp.Age),
			HeightCM: leadingInt(string(jp.Height)),
			BodyType: string(jp.Body),
			Cities:   string(jp.Location),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// leadingInt parses "175", "175 см" or "175.0"; 0 when absent.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}
