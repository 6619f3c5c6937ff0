package models

import (
	"testing"
)

func TestGenerateRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		req       *GenerateRequest
		wantErr   bool
		wantCount int
		wantTotal float64
	}{
		{"missing chapter", &GenerateRequest{Subject: "Bio"}, true, 0, 0},
		{"defaults applied", &GenerateRequest{Subject: "Bio", Chapter: "Cells"}, false, DefaultCount, DefaultExamTotal},
		{"allowed count kept", &GenerateRequest{Subject: "Bio", Chapter: "Cells", Count: 20}, false, 20, DefaultExamTotal},
		{"disallowed count", &GenerateRequest{Subject: "Bio", Chapter: "Cells", Count: 7}, true, 0, 0},
		{"total below minimum", &GenerateRequest{Subject: "Bio", Chapter: "Cells", TotalScore: 0.5}, true, 0, 0},
		{"custom total", &GenerateRequest{Subject: "Bio", Chapter: "Cells", Count: 5, TotalScore: 25}, false, 5, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.req.Count != tt.wantCount {
				t.Errorf("Count = %d, want %d", tt.req.Count, tt.wantCount)
			}
			if tt.req.TotalScore != tt.wantTotal {
				t.Errorf("TotalScore = %v, want %v", tt.req.TotalScore, tt.wantTotal)
			}
		})
	}
}

func TestOwnerKey_IsTemporary(t *testing.T) {
	a, b := TemporaryKey("u", "s1"), TemporaryKey("u", "s2")
	if !a.IsTemporary() || !b.IsTemporary() {
		t.Error("temporary chat key not recognized")
	}
	if a == b {
		t.Error("sessions must not share a temporary chapter")
	}
	if (OwnerKey{UserHash: "u", Subject: "Bio", Chapter: TemporaryChapter}).IsTemporary() {
		t.Error("regular subject reported as temporary")
	}
}

func TestRole_Valid(t *testing.T) {
	if !RoleUser.Valid() || !RoleAssistant.Valid() {
		t.Error("user and assistant roles must be valid")
	}
	if Role("system").Valid() {
		t.Error("system role must be rejected")
	}
}
