// Command tilegen slices a local map image into the z/x/y tile pyramid that
// map clients load. Zoom level 0 fits the whole map on one tile; each
// further level doubles the resolution.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

func main() {
	var (
		in       = flag.String("image", "", "Path to the map image (TIFF, PNG, or JPEG)")
		out      = flag.String("out", "tiles", "Output directory for the tile pyramid")
		maxZoom  = flag.Int("max-zoom", 4, "Deepest zoom level to generate")
		tileSize = flag.Int("tile-size", 256, "Tile edge length in pixels")
	)
	flag.Parse()

	if *in == "" {
		fmt.Println("Usage: tilegen -image <path> [-out tiles] [-max-zoom 4] [-tile-size 256]")
		os.Exit(1)
	}
	if *maxZoom < 0 || *tileSize <= 0 {
		fmt.Fprintln(os.Stderr, "Invalid zoom or tile size")
		os.Exit(1)
	}

	f, err := os.Open(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open image: %v\n", err)
		os.Exit(1)
	}
	img, format, err := image.Decode(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to decode image: %v\n", err)
		os.Exit(1)
	}

	bounds := img.Bounds()
	fmt.Printf("Loaded %s image: %dx%d pixels\n", format, bounds.Dx(), bounds.Dy())

	total := 0
	for z := 0; z <= *maxZoom; z++ {
		n, err := renderZoomLevel(img, *out, z, *tileSize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Zoom %d failed: %v\n", z, err)
			os.Exit(1)
		}
		fmt.Printf("Zoom %d: %d tiles\n", z, n)
		total += n
	}
	fmt.Printf("Wrote %d tiles to %s\n", total, *out)
}

// renderZoomLevel scales the map to 2^z tiles per axis and writes each tile
// to out/z/x/y.png.
func renderZoomLevel(src image.Image, out string, z, tileSize int) (int, error) {
	tiles := 1 << z
	edge := tiles * tileSize

	scaled := image.NewRGBA(image.Rect(0, 0, edge, edge))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Over, nil)

	count := 0
	for x := 0; x < tiles; x++ {
		dir := filepath.Join(out, fmt.Sprintf("%d", z), fmt.Sprintf("%d", x))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return count, fmt.Errorf("create tile directory: %w", err)
		}
		for y := 0; y < tiles; y++ {
			tile := scaled.SubImage(image.Rect(
				x*tileSize, y*tileSize,
				(x+1)*tileSize, (y+1)*tileSize,
			))
			path := filepath.Join(dir, fmt.Sprintf("%d.png", y))
			if err := writePNG(path, tile); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create tile: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode tile: %w", err)
	}
	return f.Close()
}
