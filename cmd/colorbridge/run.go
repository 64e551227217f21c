package main

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/nerrad567/colorbridge/internal/api"
	"github.com/nerrad567/colorbridge/internal/bridge"
	"github.com/nerrad567/colorbridge/internal/camera"
	"github.com/nerrad567/colorbridge/internal/chat"
	"github.com/nerrad567/colorbridge/internal/chat/discord"
	"github.com/nerrad567/colorbridge/internal/chat/matrix"
	"github.com/nerrad567/colorbridge/internal/chat/telegram"
	"github.com/nerrad567/colorbridge/internal/colorcmd"
	"github.com/nerrad567/colorbridge/internal/gateway"
	"github.com/nerrad567/colorbridge/internal/imaging"
	"github.com/nerrad567/colorbridge/internal/infrastructure/config"
	"github.com/nerrad567/colorbridge/internal/infrastructure/logging"
	"github.com/nerrad567/colorbridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/colorbridge/internal/statepub"
)

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: YAML file to load; empty means defaults plus environment
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting colorbridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)

	addr, err := gateway.ParseDeviceAddress(cfg.Light.Address, cfg.Light.AddressFormat)
	if err != nil {
		return fmt.Errorf("parsing light address: %w", err)
	}

	gw, err := gateway.Dial(ctx, gateway.Config{
		Host:              cfg.Gateway.Host,
		ConnectTimeout:    cfg.Gateway.ConnectTimeoutDuration(),
		RequestTimeout:    cfg.Gateway.RequestTimeoutDuration(),
		ReconnectInterval: cfg.Gateway.ReconnectIntervalDuration(),
		TransitionTime:    uint16(cfg.Gateway.TransitionTime), //nolint:gosec // range checked by Validate
	})
	if err != nil {
		return fmt.Errorf("connecting to gateway: %w", err)
	}
	defer func() {
		log.Info("closing gateway connection")
		if closeErr := gw.Close(); closeErr != nil {
			log.Error("error closing gateway", "error", closeErr)
		}
	}()
	gw.SetLogger(log.Component("gateway"))
	log.Info("gateway connected", "host", cfg.Gateway.Host, "light", addr.String())

	var cam camera.Capturer
	if cfg.Camera.Enabled {
		dev, openErr := camera.Open(camera.Config{
			Path:    cfg.Camera.Path,
			Width:   uint32(cfg.Camera.Width),  //nolint:gosec // validated positive
			Height:  uint32(cfg.Camera.Height), //nolint:gosec // validated positive
			FPS:     float32(cfg.Camera.FPS),
			Timeout: cfg.Camera.CaptureTimeoutDuration(),
		})
		if openErr != nil {
			return fmt.Errorf("opening camera: %w", openErr)
		}
		defer func() {
			if closeErr := dev.Close(); closeErr != nil {
				log.Error("error closing camera", "error", closeErr)
			}
		}()
		settings := dev.Settings()
		log.Info("camera streaming",
			"path", cfg.Camera.Path,
			"format", settings.Format,
			"width", settings.Width,
			"height", settings.Height,
		)
		cam = dev
	}

	chatClient, err := connectChat(ctx, cfg.Chat, log.Component("chat", "backend", cfg.Chat.Backend))
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.Chat.Backend, err)
	}
	defer func() {
		if closeErr := chatClient.Close(); closeErr != nil {
			log.Error("error closing chat client", "error", closeErr)
		}
	}()

	opts := bridge.Options{
		Chat:         chatClient,
		Gateway:      gw,
		Address:      addr,
		Parser:       colorcmd.NewParser(cfg.Chat.CommandPrefix),
		Camera:       cam,
		EventBuffer:  cfg.Chat.EventBuffer,
		FrameBacklog: cfg.Camera.FrameBacklog,
		Overflow:     bridge.OverflowPolicy(cfg.Camera.OverflowPolicy),
		Transcoder:   imaging.Transcoder{Quality: cfg.Camera.JPEGQuality},
		Logger:       log.Component("bridge"),
	}
	if cfg.Gateway.RateLimit > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(cfg.Gateway.RateLimit), cfg.Gateway.RateBurst)
	}

	checks := map[string]api.HealthChecker{"gateway": gw}
	var pubStats api.PublisherStats

	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		pub := statepub.New(mqttClient, addr, 0, log.Component("statepub"))
		pubCtx, stopPub := context.WithCancel(ctx)
		defer stopPub()
		go pub.Run(pubCtx) //nolint:errcheck // Run only returns nil

		opts.Observer = pub
		opts.Frames = pub
		pubStats = pub
		checks["mqtt"] = mqttClient
	}

	b, err := bridge.New(opts)
	if err != nil {
		return fmt.Errorf("building bridge: %w", err)
	}

	if cfg.API.Enabled {
		srv, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log.Component("api"),
			Bridge:   b,
			Gateway:  gw,
			StatePub: pubStats,
			Checks:   checks,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := srv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	log.Info("colorbridge running",
		"backend", chatClient.Name(),
		"prefix", cfg.Chat.CommandPrefix,
		"camera", cfg.Camera.Enabled,
	)

	if err := b.Run(ctx); err != nil {
		return fmt.Errorf("bridge stopped: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}

// connectChat opens the configured chat backend.
func connectChat(ctx context.Context, cfg config.ChatConfig, log *logging.Logger) (chat.Client, error) {
	switch cfg.Backend {
	case config.BackendTelegram:
		c, err := telegram.Connect(telegram.Config{Token: cfg.Token, Endpoint: cfg.Host}, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendDiscord:
		c, err := discord.Connect(discord.Config{Token: cfg.Token}, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendMatrix, "":
		c, err := matrix.Connect(ctx, matrix.Config{Homeserver: cfg.Host, Token: cfg.Token}, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown chat backend %q", cfg.Backend)
	}
}
