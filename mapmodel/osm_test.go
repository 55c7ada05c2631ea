package mapmodel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOSM = `<?xml version="1.0"?>
<osm version="0.6">
  <bounds minlat="0" minlon="0" maxlat="10" maxlon="10"/>
  <node id="1" lat="0" lon="0"/>
  <node id="2" lat="1" lon="0"/>
  <node id="3" lat="2" lon="0"/>
  <way id="100">
    <tag k="highway" v="residential"/>
    <nd ref="1"/><nd ref="2"/><nd ref="3"/>
  </way>
  <way id="101">
    <tag k="highway" v="living_street"/>
    <nd ref="1"/><nd ref="3"/>
  </way>
  <way id="102">
    <tag k="building" v="yes"/>
    <nd ref="1"/><nd ref="2"/>
  </way>
</osm>`

func TestLoadOSMParsesNodesAndRoads(t *testing.T) {
	rm, err := LoadOSM(strings.NewReader(sampleOSM))
	require.NoError(t, err)
	assert.Len(t, rm.Nodes, 3)
	// The building-tagged way has no highway tag and must be dropped.
	assert.Len(t, rm.Roads, 2)
	for _, r := range rm.Roads {
		assert.Equal(t, Residential, r.Type)
	}
	assert.Equal(t, Bounds{MinLat: 0, MaxLat: 10, MinLon: 0, MaxLon: 10}, rm.Bounds)
}

func TestLoadOSMRejectsMalformedXML(t *testing.T) {
	_, err := LoadOSM(strings.NewReader("<osm><node"))
	assert.Error(t, err)
}

func TestHighwayTypeIgnoresUnknownTags(t *testing.T) {
	_, ok := highwayType([]osmTag{{Key: "building", Value: "yes"}})
	assert.False(t, ok)
}

func TestHighwayTypeFoldsLivingStreetIntoResidential(t *testing.T) {
	rt, ok := highwayType([]osmTag{{Key: "highway", Value: "living_street"}})
	require.True(t, ok)
	assert.Equal(t, Residential, rt)
}
