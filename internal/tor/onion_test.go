package tor

import (
	"errors"
	"strings"
	"testing"
)

const (
	// testOnionV3Addr1 is derived from an all-zero public key.
	testOnionV3Addr1 = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaam2dqd.onion"
	// testOnionV3Addr2 is derived from the public key 0,1,2,...,31.
	testOnionV3Addr2 = "aaaqeayeaudaocajbifqydiob4ibceqtcqkrmfyydenbwha5dyp3kead.onion"
)

func TestIsValidV3Address(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		address string
		want    bool
	}{
		{name: "valid", address: testOnionV3Addr1, want: true},
		{name: "valid sequential key", address: testOnionV3Addr2, want: true},
		{name: "uppercase", address: strings.ToUpper(strings.TrimSuffix(testOnionV3Addr1, ".onion")) + ".onion", want: true},
		{name: "bad checksum", address: strings.Repeat("a", 56) + ".onion", want: false},
		{name: "v2", address: "facebookcorewwwi.onion", want: false},
		{name: "too long", address: strings.Repeat("a", 57) + ".onion", want: false},
		{name: "missing suffix", address: strings.Repeat("a", 56), want: false},
		{name: "invalid characters", address: strings.Repeat("1", 56) + ".onion", want: false},
		{name: "empty", address: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsValidV3Address(tt.address); got != tt.want {
				t.Errorf("IsValidV3Address(%q) = %v, expected %v", tt.address, got, tt.want)
			}
		})
	}
}

func TestValidateHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		host    string
		wantErr error
	}{
		{name: "clearnet host", host: "example.com"},
		{name: "ip address", host: "127.0.0.1"},
		{name: "v3 host", host: testOnionV3Addr2},
		{name: "subdomain of v3 host", host: "www." + testOnionV3Addr1},
		{name: "v2 host", host: "facebookcorewwwi.onion", wantErr: ErrV2AddressDeprecated},
		{name: "garbage onion", host: "nothing.onion", wantErr: ErrInvalidOnionAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateHost(tt.host)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateHost(%q) = %v, expected %v", tt.host, err, tt.wantErr)
			}
		})
	}
}

func TestAddressFromPublicKey(t *testing.T) {
	t.Parallel()

	zero := make([]byte, 32)
	got, err := AddressFromPublicKey(zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != testOnionV3Addr1 {
		t.Errorf("AddressFromPublicKey(zero) = %q, expected %q", got, testOnionV3Addr1)
	}

	sequential := make([]byte, 32)
	for i := range sequential {
		sequential[i] = byte(i)
	}
	got, err = AddressFromPublicKey(sequential)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != testOnionV3Addr2 {
		t.Errorf("AddressFromPublicKey(sequential) = %q, expected %q", got, testOnionV3Addr2)
	}

	if _, err := AddressFromPublicKey([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidOnionAddress) {
		t.Errorf("expected ErrInvalidOnionAddress, got %v", err)
	}
}

func TestIsOnionHost(t *testing.T) {
	t.Parallel()

	if !IsOnionHost("abc.ONION") {
		t.Error("expected .ONION to be recognized")
	}
	if IsOnionHost("example.com") {
		t.Error("expected example.com not to be an onion host")
	}
}
