package pipeline

import "fmt"

// Progress messages keyed by locale. The locale middleware resolves the
// caller's locale from headers or GeoIP; anything unknown falls back to
// English.
var progressMessages = map[string]struct {
	analyzing  string
	generating string
}{
	"en": {
		analyzing:  "Analyzing your product photo...",
		generating: "Generating image %d of %d...",
	},
	"id": {
		analyzing:  "Menganalisis foto produk Anda...",
		generating: "Membuat gambar %d dari %d...",
	},
}

func analyzingMessage(locale string) string {
	m, ok := progressMessages[locale]
	if !ok {
		m = progressMessages["en"]
	}
	return m.analyzing
}

func generatingMessage(locale string, image, total int) string {
	m, ok := progressMessages[locale]
	if !ok {
		m = progressMessages["en"]
	}
	return fmt.Sprintf(m.generating, image, total)
}
