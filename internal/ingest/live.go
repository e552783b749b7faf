// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/portwatch/portwatch/internal/logging"
	"github.com/portwatch/portwatch/internal/models"
)

// LiveSource streams position reports from an aisstream.io compatible
// websocket feed.
type LiveSource struct {
	cfg     Config
	conn    *websocket.Conn
	connMu  sync.Mutex
	breaker *gobreaker.CircuitBreaker[*websocket.Conn]
	limiter *rate.Limiter
}

// subscription is the feed's subscribe message.
type subscription struct {
	APIKey             string        `json:"APIKey"`
	BoundingBoxes      [][][]float64 `json:"BoundingBoxes"`
	FilterMessageTypes []string      `json:"FilterMessageTypes"`
}

// feedMessage is the envelope the feed sends per report.
type feedMessage struct {
	MessageType string `json:"MessageType"`
	MetaData    struct {
		MMSI     int64   `json:"MMSI"`
		IMO      int64   `json:"IMO"`
		ShipName string  `json:"ShipName"`
		TimeUTC  string  `json:"time_utc"`
		Lat      float64 `json:"latitude"`
		Lon      float64 `json:"longitude"`
	} `json:"MetaData"`
	Message struct {
		PositionReport struct {
			Latitude           float64 `json:"Latitude"`
			Longitude          float64 `json:"Longitude"`
			Sog                float64 `json:"Sog"`
			Cog                float64 `json:"Cog"`
			TrueHeading        int     `json:"TrueHeading"`
			NavigationalStatus int     `json:"NavigationalStatus"`
		} `json:"PositionReport"`
	} `json:"Message"`
}

// NewLiveSource creates the live source. The connection is established
// lazily on the first Collect.
func NewLiveSource(cfg Config) (*LiveSource, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("live source requires an API key")
	}

	breaker := gobreaker.NewCircuitBreaker[*websocket.Conn](gobreaker.Settings{
		Name:    "ais-feed",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &LiveSource{
		cfg:     cfg,
		breaker: breaker,
		// Reconnect pacing: bursts of one, a new attempt every 2 seconds.
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}, nil
}

// Name identifies the source in logs and metrics.
func (s *LiveSource) Name() string { return ModeLive }

// Collect drains the feed until the collection window elapses or the
// batch fills. A read failure drops the connection and returns whatever
// was collected; the next tick reconnects.
func (s *LiveSource) Collect(ctx context.Context) ([]Sample, error) {
	conn, err := s.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(s.cfg.CollectWindow)
	samples := make([]Sample, 0, s.cfg.BatchSize)

	for len(samples) < s.cfg.BatchSize {
		if ctx.Err() != nil {
			return samples, ctx.Err()
		}
		if err := conn.SetReadDeadline(deadline); err != nil {
			return samples, fmt.Errorf("set read deadline: %w", err)
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if isDeadlineExceeded(err) {
				return samples, nil
			}
			s.dropConnection()
			if len(samples) > 0 {
				logging.Warn().Err(err).Msg("feed read failed mid-batch, keeping partial batch")
				return samples, nil
			}
			return nil, fmt.Errorf("read feed message: %w", err)
		}

		sample, ok := parseFeedMessage(data)
		if !ok {
			continue
		}
		samples = append(samples, sample)
	}

	return samples, nil
}

func isDeadlineExceeded(err error) bool {
	netErr, ok := err.(interface{ Timeout() bool })
	return ok && netErr.Timeout()
}

func parseFeedMessage(data []byte) (Sample, bool) {
	var msg feedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logging.Debug().Err(err).Msg("skipping unparseable feed message")
		return Sample{}, false
	}
	if msg.MessageType != "PositionReport" {
		return Sample{}, false
	}

	report := msg.Message.PositionReport
	ts, err := time.Parse("2006-01-02 15:04:05.999999999 -0700 MST", msg.MetaData.TimeUTC)
	if err != nil {
		ts = time.Now().UTC()
	}

	sample := Sample{
		MMSI:      fmt.Sprintf("%d", msg.MetaData.MMSI),
		Name:      msg.MetaData.ShipName,
		Timestamp: ts,
		Lat:       report.Latitude,
		Lon:       report.Longitude,
		Source:    models.SourceLive,
	}
	if msg.MetaData.IMO > 0 {
		sample.IMO = fmt.Sprintf("%d", msg.MetaData.IMO)
	}

	sog := report.Sog
	cog := report.Cog
	sample.SpeedKnots = &sog
	sample.CourseDeg = &cog
	if report.TrueHeading >= 0 && report.TrueHeading < 360 {
		heading := float64(report.TrueHeading)
		sample.HeadingDeg = &heading
	}
	status := fmt.Sprintf("%d", report.NavigationalStatus)
	sample.NavStatus = &status

	return sample, true
}

func (s *LiveSource) ensureConnected(ctx context.Context) (*websocket.Conn, error) {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn != nil {
		return s.conn, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	conn, err := s.breaker.Execute(func() (*websocket.Conn, error) {
		return s.dial(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("connect to feed: %w", err)
	}

	s.conn = conn
	logging.Info().Str("url", s.cfg.FeedURL).Msg("connected to AIS feed")
	return conn, nil
}

func (s *LiveSource) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, s.cfg.FeedURL, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	sub := subscription{
		APIKey:             s.cfg.APIKey,
		FilterMessageTypes: []string{"PositionReport"},
	}
	if len(s.cfg.BBox) == 4 {
		sub.BoundingBoxes = [][][]float64{{
			{s.cfg.BBox[0], s.cfg.BBox[1]},
			{s.cfg.BBox[2], s.cfg.BBox[3]},
		}}
	} else {
		sub.BoundingBoxes = [][][]float64{{{-90, -180}, {90, 180}}}
	}

	payload, err := json.Marshal(sub)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("marshal subscription: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send subscription: %w", err)
	}

	return conn, nil
}

func (s *LiveSource) dropConnection() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

// Close shuts the connection down.
func (s *LiveSource) Close() error {
	s.dropConnection()
	return nil
}
