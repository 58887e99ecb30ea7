package scan

import "strings"

// Payload is the normalized content of one scan.
type Payload struct {
	Name        string `json:"name"`
	Major       string `json:"major"`
	SubjectCode string `json:"subject_code"`
}

// Valid reports whether the fields required to record attendance are present.
func (p Payload) Valid() bool {
	return p.Name != "" && p.SubjectCode != ""
}

// Parse reads raw scan text. Text containing '=' is a structured payload of
// semicolon-separated key=value fields (Name, Major, Neptun); anything else is
// a bare subject code. Trailing empty pieces of a segment are dropped before
// the split is checked, so "Neptun=ABC123=" reads as ABC123 and "Name=" is
// skipped. Other segments that do not split into exactly one key and one value
// are skipped too. Parse never fails; callers check Valid.
func Parse(raw string) (p Payload, structured bool) {
	if !strings.Contains(raw, "=") {
		return Payload{SubjectCode: strings.TrimSpace(raw)}, false
	}
	for _, segment := range strings.Split(raw, ";") {
		kv := trimTrailingEmpty(strings.Split(segment, "="))
		if len(kv) != 2 {
			continue
		}
		value := strings.TrimSpace(kv[1])
		switch strings.TrimSpace(kv[0]) {
		case "Name":
			p.Name = value
		case "Major":
			p.Major = value
		case "Neptun":
			p.SubjectCode = value
		}
	}
	return p, true
}

func trimTrailingEmpty(parts []string) []string {
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// GateKey is the identity the dedup gate compares: the subject code when one
// can be read from raw, else the whole trimmed text, upper-cased either way.
func GateKey(raw string) string {
	p, _ := Parse(raw)
	if p.SubjectCode != "" {
		return strings.ToUpper(p.SubjectCode)
	}
	return strings.ToUpper(strings.TrimSpace(raw))
}
