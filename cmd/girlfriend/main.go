// Command girlfriend runs the virtual character performance core: it
// connects to the dialogue backend, plays synthesized speech in order and
// drives the expression, lip, blink, gaze and body layers every frame.
// User input is read line by line from stdin.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"

	"github.com/gsgaurav0/AI-Girlfriend/internal/anim"
	"github.com/gsgaurav0/AI-Girlfriend/internal/audio"
	"github.com/gsgaurav0/AI-Girlfriend/internal/bus"
	"github.com/gsgaurav0/AI-Girlfriend/internal/character"
	"github.com/gsgaurav0/AI-Girlfriend/internal/clock"
	"github.com/gsgaurav0/AI-Girlfriend/internal/config"
	"github.com/gsgaurav0/AI-Girlfriend/internal/logging"
	"github.com/gsgaurav0/AI-Girlfriend/internal/protocol"
)

const frameInterval = 16 * time.Millisecond

// traceRig is the frame sink used when no renderer is attached. It samples
// the flushed state into the trace log about once a second.
type traceRig struct {
	logger zerolog.Logger
	frames int
}

func (r *traceRig) ApplyFace(weights map[string]float32) {
	r.frames++
	if r.frames%60 == 0 {
		r.logger.Trace().Interface("weights", weights).Msg("face frame")
	}
}

func (r *traceRig) ApplyGaze(point mgl32.Vec3) {
	if r.frames%60 == 0 {
		r.logger.Trace().
			Float32("x", point.X()).Float32("y", point.Y()).Float32("z", point.Z()).
			Msg("gaze frame")
	}
}

func (r *traceRig) ApplyBody(pose anim.BodyPose, action anim.ActionSnapshot) {
	if r.frames%60 == 0 && action.State != anim.ActionIdle {
		r.logger.Trace().
			Str("state", action.State.String()).Str("clip", action.ClipID).
			Msg("action frame")
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closeLog, err := logging.New(nil)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closeLog()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	device, err := audio.NewMP3Device(cfg.Audio.BufferFrames, logger)
	if err != nil {
		return fmt.Errorf("init audio: %w", err)
	}
	defer device.Close()

	events := bus.NewEventBus()
	rig := &traceRig{logger: logger.With().Str("component", "rig").Logger()}
	ctrl := character.New(cfg, device, anim.NewClipLibrary(nil), rig, events, logger)
	ctrl.LoadAvatar()

	client := protocol.NewClient(
		cfg.Server.URL,
		cfg.Server.ReconnectDelay,
		ctrl.OnDialogueMessage,
		ctrl.OnConnectionStatus,
		logger,
	)
	ctrl.SetSender(client)
	client.Connect(ctx)
	defer client.Disconnect()

	events.Subscribe(bus.EventTypeConnected, func(bus.Event) {
		fmt.Println("[connected]")
	})
	events.Subscribe(bus.EventTypeDisconnected, func(bus.Event) {
		fmt.Println("[disconnected, retrying...]")
	})

	frames := clock.NewFrameClock(cfg.Animation.MaxDelta, ctrl.Tick)
	go frames.Run(ctx, frameInterval)

	logger.Info().Str("url", cfg.Server.URL).Msg("performance core running")
	fmt.Println("Type a message and press enter. Ctrl-C to quit.")

	go readInput(ctx, ctrl, logger)

	<-ctx.Done()
	ctrl.UnloadAvatar()
	logger.Info().Msg("shutting down")
	return nil
}

// readInput forwards stdin lines as user messages until the context ends.
func readInput(ctx context.Context, ctrl *character.Controller, logger zerolog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if err := ctrl.OnUserSubmit(text); err != nil {
			logger.Warn().Err(err).Msg("could not send message")
			fmt.Println("[not connected]")
		}
	}
}
