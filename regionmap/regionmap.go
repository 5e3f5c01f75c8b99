// Package regionmap - Processing of manually mapped region documents.
//
// The documents are produced by the interactive mapping tool used to
// annotate shelf images by hand. Their JSON schema (field names
// included) is the tool's own and is treated as an external contract;
// struct tags map it onto Go names.
package regionmap

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/shelfvision/shelfeval/images"
	"github.com/shelfvision/shelfeval/labels"
)

// Mapping is one saved region-mapping document: the source image, the
// mapping date and every region with its items.
type Mapping struct {
	Image      ImageInfo `json:"imagem"`
	MappedAt   string    `json:"data_mapeamento"`
	TotalIDs   int       `json:"total_ids"`
	TotalItems int       `json:"total_items"`
	Regions    []Region  `json:"regioes"`
}

// ImageInfo identifies the mapped image.
type ImageInfo struct {
	Name       string     `json:"nome"`
	Path       string     `json:"caminho"`
	Resolution Resolution `json:"resolucao"`
}

// Resolution is the mapped image's pixel dimensions.
type Resolution struct {
	Width  int `json:"largura"`
	Height int `json:"altura"`
}

// Region groups the items sharing one region ID.
type Region struct {
	ID         int    `json:"id"`
	TotalItems int    `json:"total_items"`
	Items      []Item `json:"items"`
}

// Item is a single mapped rectangle within a region.
type Item struct {
	Number    int    `json:"item_numero"`
	Coords    Coords `json:"coords"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Coords holds an item's absolute pixel rectangle. Width and Height
// are stored redundantly by the tool.
type Coords struct {
	XMin   int `json:"x_min"`
	YMin   int `json:"y_min"`
	XMax   int `json:"x_max"`
	YMax   int `json:"y_max"`
	Width  int `json:"largura"`
	Height int `json:"altura"`
}

// Area returns the item's area in square pixels.
func (c Coords) Area() int {
	return c.Width * c.Height
}

// Rect converts the item coordinates to a corner-form box.
func (c Coords) Rect() images.Rect {
	return images.Rect{
		X1: float32(c.XMin),
		Y1: float32(c.YMin),
		X2: float32(c.XMax),
		Y2: float32(c.YMax),
	}
}

// Load reads and parses a mapping document.
func Load(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading mapping %s", path)
	}

	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "parsing mapping %s", path)
	}
	return &m, nil
}

// Annotations converts every mapped item into an evaluation
// ground-truth annotation, using the region ID as the class label, so
// a mapping can stand in for a label file.
func (m *Mapping) Annotations() []labels.Annotation {
	var annotations []labels.Annotation
	for _, region := range m.Regions {
		for _, item := range region.Items {
			annotations = append(annotations, labels.Annotation{
				Class: region.ID,
				Box:   item.Coords.Rect(),
			})
		}
	}
	return annotations
}

// Stats summarizes a mapping document.
type Stats struct {
	TotalIDs       int
	TotalItems     int
	ItemsPerRegion map[int]int
	AreaPerRegion  map[int]int
	MinItemArea    int
	MaxItemArea    int
	MeanItemArea   float64
	// Coverage is the share of the image area covered by mapped
	// items, in percent.
	Coverage float64
}

// Stats computes the summary the mapping tool reports interactively.
func (m *Mapping) Stats() Stats {
	s := Stats{
		TotalIDs:       len(m.Regions),
		ItemsPerRegion: make(map[int]int),
		AreaPerRegion:  make(map[int]int),
	}

	areaSum := 0
	for _, region := range m.Regions {
		s.ItemsPerRegion[region.ID] = len(region.Items)
		for _, item := range region.Items {
			area := item.Coords.Area()
			s.AreaPerRegion[region.ID] += area
			areaSum += area
			s.TotalItems++

			if s.MinItemArea == 0 || area < s.MinItemArea {
				s.MinItemArea = area
			}
			if area > s.MaxItemArea {
				s.MaxItemArea = area
			}
		}
	}

	if s.TotalItems > 0 {
		s.MeanItemArea = float64(areaSum) / float64(s.TotalItems)
	}
	if imageArea := m.Image.Resolution.Width * m.Image.Resolution.Height; imageArea > 0 {
		s.Coverage = float64(areaSum) / float64(imageArea) * 100
	}

	return s
}

// csvHeader matches the column set the mapping tool exports.
var csvHeader = []string{
	"id", "item_numero", "x_min", "y_min", "x_max", "y_max",
	"largura", "altura", "area", "timestamp",
}

// ExportCSV writes one row per mapped item in the tool's CSV layout.
func (m *Mapping) ExportCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "writing csv header")
	}

	for _, region := range m.Regions {
		for _, item := range region.Items {
			c := item.Coords
			row := []string{
				strconv.Itoa(region.ID),
				strconv.Itoa(item.Number),
				strconv.Itoa(c.XMin),
				strconv.Itoa(c.YMin),
				strconv.Itoa(c.XMax),
				strconv.Itoa(c.YMax),
				strconv.Itoa(c.Width),
				strconv.Itoa(c.Height),
				strconv.Itoa(c.Area()),
				item.Timestamp,
			}
			if err := cw.Write(row); err != nil {
				return errors.Wrap(err, "writing csv row")
			}
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}
