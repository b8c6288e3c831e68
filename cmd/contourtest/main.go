// Command contourtest traces one color of a mask image with both tracers
// and prints the regions each one finds.
package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"

	"mask2coco/internal/coco"
	"mask2coco/internal/contour"
	"mask2coco/internal/mask"
	"mask2coco/internal/maskio"
	"mask2coco/pkg/colorutil"
)

func main() {
	imagePath := flag.String("image", "", "Path to mask image (PNG, BMP, TIFF, ...)")
	colorStr := flag.String("color", "", "Color to trace as r,g,b")
	verbose := flag.Bool("v", false, "Print every polygon vertex")
	flag.Parse()

	if *imagePath == "" || *colorStr == "" {
		fmt.Println("Usage: contourtest -image <path> -color r,g,b [-v]")
		os.Exit(1)
	}

	target, err := colorutil.ParseRGB(*colorStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid color: %v\n", err)
		os.Exit(1)
	}

	img, err := maskio.Load(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}

	bounds := img.Bounds()
	fmt.Printf("Loaded image: %dx%d pixels\n", bounds.Dx(), bounds.Dy())

	grid := mask.Build(mask.NewRaster(img), target)
	fmt.Printf("Color %s: %d pixels\n", target, grid.Count())

	tracers := []contour.Tracer{contour.Native{}, contour.OpenCV{}}
	results := make([][]coco.Annotation, len(tracers))

	for i, tr := range tracers {
		anns := make([]coco.Annotation, 0)
		for _, p := range tr.Trace(grid) {
			anns = append(anns, coco.NewAnnotation(p, 1, 1))
		}
		results[i] = anns

		fmt.Printf("\n%s: %d regions\n", tr.Name(), len(anns))
		fmt.Printf("%-6s %8s %8s %8s %8s %10s %8s\n", "#", "X", "Y", "W", "H", "Area", "Verts")
		for j, a := range anns {
			fmt.Printf("%-6d %8d %8d %8d %8d %10d %8d\n",
				j+1, a.BBox.X, a.BBox.Y, a.BBox.Width, a.BBox.Height, a.Area, len(a.Polygon))
			if *verbose {
				fmt.Printf("       %v\n", a.Polygon.Flatten())
			}
		}
	}

	if reflect.DeepEqual(results[0], results[1]) {
		fmt.Printf("\nTracers agree\n")
	} else {
		fmt.Printf("\nTracers DIFFER\n")
		os.Exit(2)
	}
}
