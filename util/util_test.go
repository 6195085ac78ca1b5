package util

import "testing"

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1024", 1024, false},
		{"10KB", 10 << 10, false},
		{"32mb", 32 << 20, false},
		{" 2GB ", 2 << 30, false},
		{"100B", 100, false},
		{"", 0, true},
		{"lots", 0, true},
		{"-5MB", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseSize(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseSize(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseSizeOr(t *testing.T) {
	if got := ParseSizeOr("junk", 42); got != 42 {
		t.Errorf("expected fallback 42, got %d", got)
	}
	if got := ParseSizeOr("1KB", 42); got != 1024 {
		t.Errorf("expected 1024, got %d", got)
	}
}

func TestCoalesce(t *testing.T) {
	if got := Coalesce("", "", "eu-west-1", "us-east-1"); got != "eu-west-1" {
		t.Errorf("unexpected %q", got)
	}
	if got := Coalesce(0, 0); got != 0 {
		t.Errorf("expected zero, got %d", got)
	}
}

func TestMaskSecret(t *testing.T) {
	if got := MaskSecret("minioadmin-secret", 4); got != "mini***" {
		t.Errorf("unexpected %q", got)
	}
	if got := MaskSecret("abc", 4); got != "***" {
		t.Errorf("short secrets must be fully masked, got %q", got)
	}
}

func TestObjectPath(t *testing.T) {
	tests := map[string]string{
		"/a.txt":         "a.txt",
		"/dir/sub/a.txt": "dir/sub/a.txt",
		"plain":          "plain",
		"//double":       "/double",
	}
	for in, want := range tests {
		if got := ObjectPath(in); got != want {
			t.Errorf("ObjectPath(%q) = %q, want %q", in, got, want)
		}
	}
}
