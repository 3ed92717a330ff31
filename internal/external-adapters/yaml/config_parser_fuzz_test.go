package yaml

import (
	"testing"
)

// FuzzConfigParser feeds random and malformed YAML to the parser to catch panics.
//
// Run with: go test -fuzz=FuzzConfigParser -fuzztime=30s
func FuzzConfigParser(f *testing.F) {
	f.Add([]byte(`report_dir: /tmp/reports
log_dir: /tmp/logs
`))
	f.Add([]byte(`inspector: native
tool_timeout: 1m
images:
  - name: core
    rootfs: /mnt/core
`))
	f.Add([]byte(`proxy: {http: "http://p:1", https: "", no_proxy: "*"}`))
	f.Add([]byte(`images: "not a list"`))
	f.Add([]byte(`tool_timeout: -5s`))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		settings, err := NewConfigParser().Parse(data)
		if err != nil {
			return
		}
		for _, img := range settings.Images {
			if img.ImageName == "" || img.RootPath == "" {
				t.Errorf("parser accepted incomplete image %+v", img)
			}
		}
	})
}
