package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/storageproxy/backend"
	"github.com/tailored-agentic-units/storageproxy/hub"
	"github.com/tailored-agentic-units/storageproxy/messaging"
	"github.com/tailored-agentic-units/storageproxy/observability"
	"github.com/tailored-agentic-units/storageproxy/remote"
	"github.com/tailored-agentic-units/storageproxy/rpc"
)

// Relay event types.
const (
	EventForward       observability.EventType = "relay.forward"
	EventForwardFailed observability.EventType = "relay.forward.failed"
)

func newRelayCmd(opts *options) *cobra.Command {
	var (
		listen          string
		metricsPath     string
		shutdownTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Forward storage exchanges for the configured topic to the executor endpoint",
		Long: `relay accepts storage requests over Connect and forwards those addressed to
the configured topic to the executor at --endpoint. Nodes can point their
remote backend at the relay instead of the executor.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.setup(); err != nil {
				return err
			}
			if opts.cfg.Endpoint == "" {
				return fmt.Errorf("relay: %w", backend.ErrNoEndpoint)
			}

			upstream := rpc.NewClient(&http.Client{Timeout: opts.cfg.Timeout}, opts.cfg.Endpoint)
			mux, shutdownHub, err := opts.relayMux(cmd.Context(), upstream, metricsPath)
			if err != nil {
				return err
			}
			defer shutdownHub(shutdownTimeout)

			server := &http.Server{
				Addr:              listen,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger := opts.logger()
			logger.Info("relaying storage exchanges",
				slog.String("addr", listen),
				slog.String("topic", opts.cfg.Remote.Topic),
				slog.String("upstream", opts.cfg.Endpoint),
			)

			errCh := make(chan error, 1)
			go func() { errCh <- server.ListenAndServe() }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return err
			}
			logger.Info("relay stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":8080", "Address to listen on")
	cmd.Flags().StringVar(&metricsPath, "metrics-path", "/metrics", "Path serving Prometheus metrics; empty disables it")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 5*time.Second, "Grace period for in-flight requests on shutdown")
	return cmd
}

// relayEventsTopic carries a notification for every forwarded exchange.
const relayEventsTopic = "relay.events"

// forwardNotice is the payload of a relay.events notification.
type forwardNotice struct {
	Topic    string `json:"topic"`
	ID       string `json:"id"`
	Duration string `json:"duration"`
	Error    string `json:"error,omitempty"`
}

// relayMux registers a forwarder to upstream on the configured topic and a
// listener on relayEventsTopic that reports forwards to the observer. The
// Connect exchange procedure is routed through the hub. It must run after
// setup.
func (o *options) relayMux(ctx context.Context, upstream remote.Transport, metricsPath string) (*http.ServeMux, func(time.Duration) error, error) {
	h := hub.New(ctx, hub.Config{Name: "storageproxy-relay", Logger: o.logger()})

	if err := h.Register(relayEventsTopic, reportForwards(o.observer)); err != nil {
		h.Shutdown(time.Second)
		return nil, nil, err
	}
	if err := h.Register(o.cfg.Remote.Topic, forward(h, upstream)); err != nil {
		h.Shutdown(time.Second)
		return nil, nil, err
	}
	registerHubMetrics(o.metrics, h)

	mux := http.NewServeMux()
	mux.Handle(rpc.NewHandler(rpc.Relay(h)))
	if metricsPath != "" {
		mux.Handle(metricsPath, observability.MetricsHandler(o.metrics))
	}
	return mux, h.Shutdown, nil
}

// forward passes each request to upstream unchanged and publishes the
// outcome on relayEventsTopic.
func forward(h hub.Hub, upstream remote.Transport) hub.Handler {
	return func(ctx context.Context, msg *messaging.Message) (*messaging.Message, error) {
		start := time.Now()
		reply, err := upstream.Request(ctx, msg)

		notice := forwardNotice{
			Topic:    msg.Topic,
			ID:       msg.ID,
			Duration: time.Since(start).String(),
		}
		if err != nil {
			notice.Error = err.Error()
		}
		if payload, encErr := json.Marshal(notice); encErr == nil {
			h.Publish(ctx, messaging.NewNotification(relayEventsTopic, payload).Build())
		}

		if err != nil {
			return nil, err
		}
		return reply, nil
	}
}

// reportForwards turns relay.events notifications into observer events.
func reportForwards(observer observability.Observer) hub.Handler {
	return func(ctx context.Context, msg *messaging.Message) (*messaging.Message, error) {
		var notice forwardNotice
		if err := json.Unmarshal(msg.Payload, &notice); err != nil {
			return nil, fmt.Errorf("decode forward notice: %w", err)
		}

		event := observability.Event{
			Type:      EventForward,
			Level:     observability.LevelVerbose,
			Timestamp: msg.Timestamp,
			Source:    "relay",
			Data: map[string]any{
				"topic":    notice.Topic,
				"id":       notice.ID,
				"duration": notice.Duration,
			},
		}
		if notice.Error != "" {
			event.Type = EventForwardFailed
			event.Level = observability.LevelWarning
			event.Data["error"] = notice.Error
		}

		observer.OnEvent(ctx, event)
		return nil, nil
	}
}

func registerHubMetrics(registerer prometheus.Registerer, h hub.Hub) {
	factory := promauto.With(registerer)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "storageproxy_relay_responders",
		Help: "Topics with a registered responder",
	}, func() float64 { return float64(h.Metrics().Responders) })

	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "storageproxy_relay_messages_sent_total",
		Help: "Messages sent through the relay hub",
	}, func() float64 { return float64(h.Metrics().MessagesSent) })

	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "storageproxy_relay_messages_received_total",
		Help: "Messages received by relay responders",
	}, func() float64 { return float64(h.Metrics().MessagesRecv) })

	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "storageproxy_relay_handler_errors_total",
		Help: "Relay forwards that failed",
	}, func() float64 { return float64(h.Metrics().HandlerErrors) })
}
