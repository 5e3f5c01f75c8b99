// Command regions inspects saved region-mapping documents: statistics,
// CSV export, annotated rendering and thumbnails.
package main

import (
	"flag"
	"log"
	"os"
	"sort"

	"github.com/shelfvision/shelfeval/regionmap"
)

func main() {
	var (
		mappingPath string
		imagePath   string
		csvPath     string
		renderPath  string
		thumbPath   string
		thumbWidth  uint
	)
	flag.StringVar(&mappingPath, "mapping", "", "Path to the mapping JSON document (required)")
	flag.StringVar(&imagePath, "image", "", "Override for the mapped image path")
	flag.StringVar(&csvPath, "csv", "", "Write the mapping as CSV to this path")
	flag.StringVar(&renderPath, "render", "", "Write the annotated image to this path")
	flag.StringVar(&thumbPath, "thumb", "", "Write a thumbnail of the annotated image to this path")
	flag.UintVar(&thumbWidth, "thumb-width", 640, "Maximum thumbnail width in pixels")
	flag.Parse()

	if mappingPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	mapping, err := regionmap.Load(mappingPath)
	if err != nil {
		log.Fatalf("Error loading mapping: %v", err)
	}
	log.Printf("mapping loaded: %s (%dx%d), %d region(s), %d item(s)",
		mapping.Image.Name,
		mapping.Image.Resolution.Width, mapping.Image.Resolution.Height,
		mapping.TotalIDs, mapping.TotalItems)

	printStats(mapping)

	if csvPath != "" {
		f, err := os.Create(csvPath)
		if err != nil {
			log.Fatalf("Error creating CSV file: %v", err)
		}
		if err := mapping.ExportCSV(f); err != nil {
			f.Close()
			log.Fatalf("Error exporting CSV: %v", err)
		}
		if err := f.Close(); err != nil {
			log.Fatalf("Error closing CSV file: %v", err)
		}
		log.Printf("CSV exported: %s", csvPath)
	}

	if renderPath != "" {
		if err := mapping.Render(imagePath, renderPath); err != nil {
			log.Fatalf("Error rendering mapping: %v", err)
		}
		log.Printf("annotated image saved: %s", renderPath)
	}

	if thumbPath != "" {
		src := renderPath
		if src == "" {
			src = imagePath
		}
		if src == "" {
			src = mapping.Image.Path
		}
		if err := regionmap.Thumbnail(src, thumbPath, thumbWidth); err != nil {
			log.Fatalf("Error writing thumbnail: %v", err)
		}
		log.Printf("thumbnail saved: %s", thumbPath)
	}
}

// printStats reports the same summary the interactive mapping tool
// prints.
func printStats(m *regionmap.Mapping) {
	s := m.Stats()

	ids := make([]int, 0, len(s.ItemsPerRegion))
	for id := range s.ItemsPerRegion {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		log.Printf("region %d: %d item(s), %d px² total", id, s.ItemsPerRegion[id], s.AreaPerRegion[id])
	}
	if s.TotalItems > 0 {
		log.Printf("item area: min=%d px², max=%d px², mean=%.0f px²", s.MinItemArea, s.MaxItemArea, s.MeanItemArea)
		log.Printf("image coverage: %.2f%%", s.Coverage)
	}
}
