package cloud

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AnalysisResult is the body of a successful POST /api/upload response.
type AnalysisResult struct {
	Success         bool            `json:"success,omitempty"`
	Message         string          `json:"message,omitempty"`
	Filename        string          `json:"filename,omitempty"`
	VideoInfo       OrderedInfo     `json:"video_info"`
	QualityAnalysis QualityAnalysis `json:"quality_analysis"`
	Frames          []Frame         `json:"frames"`
}

// QualityAnalysis is the scored verdict the analysis service computes.
type QualityAnalysis struct {
	Score           int      `json:"score"`
	ConfidenceLevel string   `json:"confidence_level"`
	Indicators      []string `json:"indicators"`
}

// Frame is one extracted still, referenced by a server-relative public path.
type Frame struct {
	ID        int    `json:"id,omitempty"`
	Timestamp int    `json:"timestamp,omitempty"`
	Path      string `json:"path"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
	Version string `json:"version,omitempty"`
}

// InfoField is one metadata entry of video_info.
type InfoField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// OrderedInfo keeps video_info entries in the order the service sent them.
// Non-string values are kept as their compact JSON text.
type OrderedInfo []InfoField

// Get returns the value for key and whether it was present.
func (o OrderedInfo) Get(key string) (string, bool) {
	for _, f := range o {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

func (o *OrderedInfo) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*o = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("video_info: expected object, got %v", tok)
	}

	var fields OrderedInfo
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("video_info: expected string key, got %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("video_info[%s]: %w", key, err)
		}
		value, err := infoValue(raw)
		if err != nil {
			return fmt.Errorf("video_info[%s]: %w", key, err)
		}

		// a repeated key keeps its first position and takes the last value
		if i, seen := index[key]; seen {
			fields[i].Value = value
			continue
		}
		index[key] = len(fields)
		fields = append(fields, InfoField{Key: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*o = fields
	return nil
}

func (o OrderedInfo) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func infoValue(raw json.RawMessage) (string, error) {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", err
	}
	return buf.String(), nil
}
