package audit

import (
	"strings"
	"testing"

	"restoran-pos/internal/models"
)

func TestEntry(t *testing.T) {
	tests := []struct {
		name       string
		opts       LogOptions
		wantBefore string
		wantAfter  string
		wantDesc   int
	}{
		{
			name:       "create has no before",
			opts:       LogOptions{EntityType: "table", EntityID: 3, Action: models.AuditActionCreate, Description: "Table T3 created", After: map[string]string{"number": "T3"}},
			wantBefore: "null",
			wantAfter:  `{"number":"T3"}`,
			wantDesc:   len("Table T3 created"),
		},
		{
			name:       "long description is cut",
			opts:       LogOptions{Description: strings.Repeat("ş", 300), Before: []int{1}},
			wantBefore: "[1]",
			wantAfter:  "null",
			wantDesc:   255,
		},
		{
			name:       "unencodable value",
			opts:       LogOptions{After: make(chan int)},
			wantBefore: "null",
			wantAfter:  "null",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Entry(tt.opts)
			if e.BeforeData != tt.wantBefore || e.AfterData != tt.wantAfter {
				t.Errorf("before %s after %s", e.BeforeData, e.AfterData)
			}
			if n := len([]rune(e.Description)); n != tt.wantDesc {
				t.Errorf("description runes = %d, want %d", n, tt.wantDesc)
			}
		})
	}
}

func TestRawOrNull(t *testing.T) {
	if got := string(rawOrNull("")); got != "null" {
		t.Errorf("empty = %s", got)
	}
	if got := string(rawOrNull(`{"a":1}`)); got != `{"a":1}` {
		t.Errorf("object = %s", got)
	}
}
