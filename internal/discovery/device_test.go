package discovery

import "testing"

func TestDeviceAddresses(t *testing.T) {
	tests := []struct {
		name     string
		device   *Device
		wantAddr string
		wantURL  string
	}{
		{
			name:     "IPv4",
			device:   &Device{Instance: "cointhing-desk", IP: "192.168.1.40", Port: 8480, Path: "/link"},
			wantAddr: "192.168.1.40:8480",
			wantURL:  "ws://192.168.1.40:8480/link",
		},
		{
			name:     "TLS",
			device:   &Device{Instance: "cointhing-desk", IP: "192.168.1.40", Port: 8443, Path: "/link", TLS: true},
			wantAddr: "192.168.1.40:8443",
			wantURL:  "wss://192.168.1.40:8443/link",
		},
		{
			name:     "IPv6",
			device:   &Device{Instance: "cointhing-hall", IP: "fe80::1", Port: 9000, Path: "/link"},
			wantAddr: "[fe80::1]:9000",
			wantURL:  "ws://[fe80::1]:9000/link",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.device.Address(); got != tt.wantAddr {
				t.Errorf("Address() = %s, want %s", got, tt.wantAddr)
			}
			if got := tt.device.LinkURL(); got != tt.wantURL {
				t.Errorf("LinkURL() = %s, want %s", got, tt.wantURL)
			}
		})
	}
}

func TestDeviceString(t *testing.T) {
	d := &Device{Instance: "cointhing-desk", Hostname: "desk.local.", IP: "192.168.1.40", Port: 8480}
	want := "cointhing cointhing-desk (desk.local.) at 192.168.1.40:8480"
	if got := d.String(); got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}

func TestDeviceGetMetadataNilMap(t *testing.T) {
	d := &Device{}
	if got := d.GetMetadata("anything"); got != "" {
		t.Errorf("GetMetadata() = %q, want empty", got)
	}
}
