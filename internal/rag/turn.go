package rag

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Turn is one earlier question/answer exchange.
type Turn struct {
	Question string
	Answer   string
}

// UnmarshalJSON accepts ["question", "answer"] pairs and {"question": ..., "answer": ...} objects.
func (t *Turn) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var pair []string
		if err := json.Unmarshal(data, &pair); err != nil {
			return fmt.Errorf("chat_history entry: %w", err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("chat_history entry: want [question, answer], got %d elements", len(pair))
		}
		t.Question, t.Answer = pair[0], pair[1]
		return nil
	}
	var obj struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("chat_history entry: %w", err)
	}
	t.Question, t.Answer = obj.Question, obj.Answer
	return nil
}

// MarshalJSON writes the pair form.
func (t Turn) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{t.Question, t.Answer})
}
