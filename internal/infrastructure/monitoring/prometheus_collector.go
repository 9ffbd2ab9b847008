package monitoring

import (
	"livecart/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	clientsConnected *prometheus.GaugeVec
	roomsActiveTotal prometheus.Gauge

	eventsRelayedTotal *prometheus.CounterVec
	eventsDroppedTotal *prometheus.CounterVec

	roomViewers *prometheus.GaugeVec

	ordersPlacedTotal prometheus.Counter
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		clientsConnected: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "livecart_signal_clients_connected",
			Help: "Connected signaling clients by role",
		}, []string{"role"}),

		roomsActiveTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "livecart_rooms_active_total",
			Help: "Number of live rooms",
		}),

		eventsRelayedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "livecart_signal_events_relayed_total",
			Help: "Signaling events relayed, by event name",
		}, []string{"event"}),

		eventsDroppedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "livecart_signal_events_dropped_total",
			Help: "Signaling events dropped, by reason",
		}, []string{"reason"}),

		roomViewers: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "livecart_room_viewers",
			Help: "Viewers per live room",
		}, []string{"room_id"}),

		ordersPlacedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "livecart_orders_placed_total",
			Help: "Orders placed through the REST API",
		}),
	}
}

func (p *PrometheusCollector) ClientConnected(role domain.Role) {
	p.clientsConnected.WithLabelValues(string(role)).Inc()
}

func (p *PrometheusCollector) ClientDisconnected(role domain.Role) {
	p.clientsConnected.WithLabelValues(string(role)).Dec()
}

func (p *PrometheusCollector) EventRelayed(event string) {
	p.eventsRelayedTotal.WithLabelValues(event).Inc()
}

func (p *PrometheusCollector) EventDropped(reason string) {
	p.eventsDroppedTotal.WithLabelValues(reason).Inc()
}

func (p *PrometheusCollector) RecordRoomCreated(roomID domain.RoomID) {
	p.roomsActiveTotal.Inc()
}

func (p *PrometheusCollector) RecordRoomEnded(roomID domain.RoomID) {
	p.roomsActiveTotal.Dec()
	p.roomViewers.DeleteLabelValues(string(roomID))
}

func (p *PrometheusCollector) SetRoomViewers(roomID domain.RoomID, count int) {
	p.roomViewers.WithLabelValues(string(roomID)).Set(float64(count))
}

func (p *PrometheusCollector) RecordOrderPlaced() {
	p.ordersPlacedTotal.Inc()
}
