package negotiation

import (
	"testing"
)

func TestParseClientHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    ClientInfo
		wantErr bool
	}{
		{
			name:   "version only",
			header: `version="1.2.0"`,
			want:   ClientInfo{Version: "1.2.0"},
		},
		{
			name:   "version with whitespace",
			header: `  version="1.2.0"  `,
			want:   ClientInfo{Version: "1.2.0"},
		},
		{
			name:   "version and name",
			header: `version="1.0.0", name="kiosk"`,
			want:   ClientInfo{Version: "1.0.0", Name: "kiosk"},
		},
		{
			name:   "name first",
			header: `name="web", version="1.1.0"`,
			want:   ClientInfo{Version: "1.1.0", Name: "web"},
		},
		{
			name:   "parameters ignored",
			header: `version="1.2.0";beta`,
			want:   ClientInfo{Version: "1.2.0"},
		},
		{
			name:    "empty header",
			header:  "",
			wantErr: true,
		},
		{
			name:    "missing version",
			header:  `name="web"`,
			wantErr: true,
		},
		{
			name:    "version not a string",
			header:  `version=1`,
			wantErr: true,
		},
		{
			name:    "version is inner list",
			header:  `version=("1.0.0")`,
			wantErr: true,
		},
		{
			name:    "malformed",
			header:  `version="unterminated`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClientHeader(tt.header)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseClientHeader() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseClientHeader() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCheckCompatible(t *testing.T) {
	tests := []struct {
		client   string
		wantCode string
	}{
		{"1.3.0", ""},
		{"1.0.0", ""},
		{"v1.2.9", ""},
		{"1.4.0", ClientVersionUnsupported},
		{"2.0.0", ClientVersionUnsupported},
		{"0.9.0", ClientVersionUnsupported},
		{"latest", ClientHeaderInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.client, func(t *testing.T) {
			err := CheckCompatible("1.3.0", tt.client)
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("CheckCompatible(%q) error = %v, want nil", tt.client, err)
				}
				return
			}
			verErr, ok := err.(*VersionError)
			if !ok {
				t.Fatalf("CheckCompatible(%q) error = %v, want *VersionError", tt.client, err)
			}
			if verErr.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", verErr.Code, tt.wantCode)
			}
		})
	}
}

func TestNegotiateForMCP(t *testing.T) {
	info, err := NegotiateForMCP(ServerVersion, "")
	if err != nil || info != nil {
		t.Errorf("NegotiateForMCP(empty) = %v, %v; want nil, nil", info, err)
	}

	info, err = NegotiateForMCP(ServerVersion, "1.0.0")
	if err != nil || info == nil || info.Version != "1.0.0" {
		t.Errorf("NegotiateForMCP(1.0.0) = %v, %v", info, err)
	}

	if _, err := NegotiateForMCP(ServerVersion, "9.0.0"); err == nil {
		t.Error("NegotiateForMCP(9.0.0) error = nil, want error")
	}
}
