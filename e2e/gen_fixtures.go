//go:build ignore

// gen_fixtures writes a sample product image directory for trying the
// upload command by hand: square images that go up as one batch, a wide
// and a tall image that need a crop, and one corrupt file.
// Usage: go run e2e/gen_fixtures.go <output_dir>
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Purewee/gerar-admin/internal/fixture"
	"github.com/Purewee/gerar-admin/internal/media"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gen_fixtures <output_dir>")
		os.Exit(1)
	}
	dir := os.Args[1]
	if err := os.MkdirAll(filepath.Join(dir, "variants"), 0o755); err != nil {
		panic(err)
	}

	files := map[string]media.File{
		"01-front.png":        fixture.PNG("01-front.png", 400, 400),
		"02-back.jpg":         fixture.JPEG("02-back.jpg", 398, 400),
		"03-banner.jpg":       fixture.JPEG("03-banner.jpg", 800, 450),
		"04-detail.png":       fixture.PNG("04-detail.png", 300, 500),
		"variants/red.png":    fixture.PNG("red.png", 200, 200),
		"variants/blue.png":   fixture.PNG("blue.png", 200, 200),
		"variants/broken.png": fixture.Corrupt("broken.png"),
	}
	for rel, f := range files {
		if err := os.WriteFile(filepath.Join(dir, rel), f.Data, 0o644); err != nil {
			panic(err)
		}
	}

	fmt.Fprintf(os.Stderr, "[gen_fixtures] created %d fixtures in %s\n", len(files), dir)
}
