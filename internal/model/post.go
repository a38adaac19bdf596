// Package model defines the core data types shared across the pipeline.
package model

import "encoding/json"

// Post is a single social-media record to be scored. Posts are identified
// by their position in the input sequence and are immutable once loaded.
// Fields beyond the known ones survive a JSON round trip via Extra.
type Post struct {
	Text     string
	Username string
	Name     string
	Location string
	Source   string

	// Extra holds passthrough fields not modeled above.
	Extra map[string]any
}

// knownPostKeys are the JSON keys mapped to named Post fields.
var knownPostKeys = map[string]struct{}{
	"text":     {},
	"username": {},
	"name":     {},
	"location": {},
	"source":   {},
}

// MarshalJSON flattens Extra back into the top-level object.
func (p Post) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+5)
	for k, v := range p.Extra {
		out[k] = v
	}
	out["text"] = p.Text
	out["username"] = p.Username
	out["name"] = p.Name
	out["location"] = p.Location
	out["source"] = p.Source
	return json.Marshal(out)
}

// UnmarshalJSON captures unknown keys into Extra so source-specific fields
// are preserved end to end.
func (p *Post) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	str := func(key string) string {
		var s string
		if v, ok := raw[key]; ok {
			_ = json.Unmarshal(v, &s)
		}
		return s
	}

	p.Text = str("text")
	p.Username = str("username")
	p.Name = str("name")
	p.Location = str("location")
	p.Source = str("source")

	for k, v := range raw {
		if _, known := knownPostKeys[k]; known {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[k] = val
	}
	return nil
}

// FraudCase is a Post that scored at or above the fraud threshold.
type FraudCase struct {
	Post
	FraudProbability float64
}

// MarshalJSON emits the post fields plus fraud_probability in one flat object.
func (c FraudCase) MarshalJSON() ([]byte, error) {
	data, err := c.Post.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	out["fraud_probability"] = c.FraudProbability
	return json.Marshal(out)
}

// UnmarshalJSON splits fraud_probability from the post fields.
func (c *FraudCase) UnmarshalJSON(data []byte) error {
	if err := c.Post.UnmarshalJSON(data); err != nil {
		return err
	}
	if v, ok := c.Post.Extra["fraud_probability"]; ok {
		if f, isFloat := v.(float64); isFloat {
			c.FraudProbability = f
		}
		delete(c.Post.Extra, "fraud_probability")
		if len(c.Post.Extra) == 0 {
			c.Post.Extra = nil
		}
	}
	return nil
}
