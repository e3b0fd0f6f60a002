package planeta

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes terrain state to prometheus. Scrape between updates;
// the terrain is single-threaded and unguarded by design.
type Collector struct {
	terrain *Terrain

	triangles      *prometheus.Desc
	vertices       *prometheus.Desc
	maxDepth       *prometheus.Desc
	distanceChecks *prometheus.Desc
	subdivs        *prometheus.Desc
	unsubdivs      *prometheus.Desc
}

func NewCollector(terrain *Terrain) *Collector {
	return &Collector{
		terrain: terrain,

		triangles: prometheus.NewDesc(
			"osp_terrain_triangles",
			"Live skeleton triangles",
			nil, nil,
		),
		vertices: prometheus.NewDesc(
			"osp_terrain_vertices",
			"Live skeleton vertices",
			nil, nil,
		),
		maxDepth: prometheus.NewDesc(
			"osp_terrain_max_depth",
			"Deepest live subdivision level",
			nil, nil,
		),
		distanceChecks: prometheus.NewDesc(
			"osp_terrain_distance_checks_total",
			"Total observer distance tests",
			nil, nil,
		),
		subdivs: prometheus.NewDesc(
			"osp_terrain_subdivisions_total",
			"Total triangle subdivisions",
			nil, nil,
		),
		unsubdivs: prometheus.NewDesc(
			"osp_terrain_unsubdivisions_total",
			"Total triangle un-subdivisions",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.triangles
	ch <- c.vertices
	ch <- c.maxDepth
	ch <- c.distanceChecks
	ch <- c.subdivs
	ch <- c.unsubdivs
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		c.triangles,
		prometheus.GaugeValue,
		float64(c.terrain.Skeleton.TriGroupCount()*4),
	)
	ch <- prometheus.MustNewConstMetric(
		c.vertices,
		prometheus.GaugeValue,
		float64(c.terrain.Skeleton.VrtxCount()),
	)
	ch <- prometheus.MustNewConstMetric(
		c.maxDepth,
		prometheus.GaugeValue,
		float64(MaxDepth(c.terrain)),
	)
	ch <- prometheus.MustNewConstMetric(
		c.distanceChecks,
		prometheus.CounterValue,
		float64(c.terrain.Stats.DistanceChecks),
	)
	ch <- prometheus.MustNewConstMetric(
		c.subdivs,
		prometheus.CounterValue,
		float64(c.terrain.Stats.Subdivs),
	)
	ch <- prometheus.MustNewConstMetric(
		c.unsubdivs,
		prometheus.CounterValue,
		float64(c.terrain.Stats.Unsubdivs),
	)
}
