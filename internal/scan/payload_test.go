package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		want       Payload
		structured bool
		valid      bool
	}{
		{"structured", "Name=Alice;Major=CS;Neptun=ABC123", Payload{"Alice", "CS", "ABC123"}, true, true},
		{"any field order with spaces", " Neptun = ABC123 ; Name = Alice Smith ", Payload{Name: "Alice Smith", SubjectCode: "ABC123"}, true, true},
		{"malformed segment ignored", "Name=Alice;Garbage;Neptun=ABC123", Payload{Name: "Alice", SubjectCode: "ABC123"}, true, true},
		{"extra equals ignored", "Name=Alice=Bob;Neptun=ABC123", Payload{SubjectCode: "ABC123"}, true, false},
		{"trailing equals on value", "Name=Alice;Neptun=ABC123=", Payload{Name: "Alice", SubjectCode: "ABC123"}, true, true},
		{"empty value does not overwrite", "Name=Alice;Neptun=ABC123;Name=", Payload{Name: "Alice", SubjectCode: "ABC123"}, true, true},
		{"whitespace value still overwrites", "Name=Alice;Neptun=ABC123;Name= ", Payload{SubjectCode: "ABC123"}, true, false},
		{"missing name", "Major=CS;Neptun=ABC123", Payload{Major: "CS", SubjectCode: "ABC123"}, true, false},
		{"keys are case-sensitive", "name=Alice;neptun=ABC123", Payload{}, true, false},
		{"unknown keys ignored", "Name=Alice;Room=101;Neptun=ABC123", Payload{Name: "Alice", SubjectCode: "ABC123"}, true, true},
		{"bare code", "ABC123", Payload{SubjectCode: "ABC123"}, false, false},
		{"bare code trimmed not upper-cased", "  abc123 ", Payload{SubjectCode: "abc123"}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, structured := Parse(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.structured, structured)
			assert.Equal(t, tt.valid, got.Valid())
		})
	}
}

func TestGateKey(t *testing.T) {
	assert.Equal(t, "ABC123", GateKey("Name=Alice;Neptun=abc123"))
	assert.Equal(t, "ABC123", GateKey(" abc123 "))
	assert.Equal(t, "NAME=ALICE;MAJOR=CS", GateKey("Name=Alice;Major=CS"))
}
