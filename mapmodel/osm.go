package mapmodel

import (
	"encoding/xml"
	"fmt"
	"io"

	"ridesim/model"
)

// osmDoc mirrors the small slice of the OSM XML schema this simulator
// consumes (spec section 6): a <bounds> element, <node> elements, and
// <way> elements carrying <nd> references and <tag> entries.
type osmDoc struct {
	XMLName xml.Name  `xml:"osm"`
	Bounds  osmBounds `xml:"bounds"`
	Nodes   []osmNode `xml:"node"`
	Ways    []osmWay  `xml:"way"`
}

type osmBounds struct {
	MinLat float64 `xml:"minlat,attr"`
	MaxLat float64 `xml:"maxlat,attr"`
	MinLon float64 `xml:"minlon,attr"`
	MaxLon float64 `xml:"maxlon,attr"`
}

type osmNode struct {
	ID  int64   `xml:"id,attr"`
	Lat float64 `xml:"lat,attr"`
	Lon float64 `xml:"lon,attr"`
}

type osmWay struct {
	ID   int64    `xml:"id,attr"`
	Nds  []osmNd  `xml:"nd"`
	Tags []osmTag `xml:"tag"`
}

type osmNd struct {
	Ref int64 `xml:"ref,attr"`
}

type osmTag struct {
	Key   string `xml:"k,attr"`
	Value string `xml:"v,attr"`
}

// highwayRoadTypes maps the accepted "highway" tag values to RoadType,
// per spec section 6. Any other highway value (or no highway tag at all)
// is ignored.
var highwayRoadTypes = map[string]RoadType{
	"motorway":      Motorway,
	"trunk":         Trunk,
	"primary":       Primary,
	"secondary":     Secondary,
	"tertiary":      Tertiary,
	"residential":   Residential,
	"living_street": Residential,
}

// LoadOSM parses an OSM-style XML map document and builds a RouteModel
// from it.
func LoadOSM(r io.Reader) (*RouteModel, error) {
	var doc osmDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("mapmodel: decode osm document: %w", err)
	}

	indexByID := make(map[int64]int, len(doc.Nodes))
	nodes := make([]model.Node, len(doc.Nodes))
	for i, n := range doc.Nodes {
		nodes[i] = model.Node{Pos: model.Coordinate{X: n.Lon, Y: n.Lat}}
		indexByID[n.ID] = i
	}

	var roads []Road
	for _, w := range doc.Ways {
		roadType, ok := highwayType(w.Tags)
		if !ok {
			continue
		}
		road := Road{Type: roadType}
		for _, nd := range w.Nds {
			if idx, ok := indexByID[nd.Ref]; ok {
				road.Nodes = append(road.Nodes, idx)
			}
		}
		if len(road.Nodes) >= 2 {
			roads = append(roads, road)
		}
	}

	bounds := Bounds{
		MinLat: doc.Bounds.MinLat,
		MaxLat: doc.Bounds.MaxLat,
		MinLon: doc.Bounds.MinLon,
		MaxLon: doc.Bounds.MaxLon,
	}
	return New(nodes, roads, bounds)
}

func highwayType(tags []osmTag) (RoadType, bool) {
	for _, t := range tags {
		if t.Key != "highway" {
			continue
		}
		rt, ok := highwayRoadTypes[t.Value]
		return rt, ok
	}
	return 0, false
}
