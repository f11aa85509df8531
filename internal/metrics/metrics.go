package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lakehopper/mapclient/internal/transport"
)

var (
	MessagesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapclient_messages_received_total",
		Help: "Messages received from the planning backend by type",
	}, []string{"type"})
	MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapclient_messages_sent_total",
		Help: "Messages sent to the planning backend by type",
	}, []string{"type"})
	PaletteExhausted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mapclient_palette_exhausted_total",
		Help: "Layers colored after the palette ran out of distinct colors",
	})
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapclient_notifications_total",
		Help: "Operator notifications by level",
	}, []string{"level"})
	Layers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mapclient_layers",
		Help: "Layers attached to the map by tag",
	}, []string{"tag"})
	LayerBuildDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mapclient_layer_build_duration_ms",
		Help:    "Time spent turning a GeoJSON object into a layer",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
	})
)

func init() {
	prometheus.MustRegister(MessagesReceived)
	prometheus.MustRegister(MessagesSent)
	prometheus.MustRegister(PaletteExhausted)
	prometheus.MustRegister(Notifications)
	prometheus.MustRegister(Layers)
	prometheus.MustRegister(LayerBuildDurationMs)
}

// Handler exposes the registered metrics for scraping.
func Handler() http.Handler { return promhttp.Handler() }

// TransportRecorder counts transport traffic.
type TransportRecorder struct{}

func (TransportRecorder) Record(dir transport.Direction, msgType string, _ json.RawMessage) {
	switch dir {
	case transport.Inbound:
		MessagesReceived.WithLabelValues(msgType).Inc()
	case transport.Outbound:
		MessagesSent.WithLabelValues(msgType).Inc()
	}
}
