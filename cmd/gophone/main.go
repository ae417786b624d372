// Command gophone is the example driver for the softphone core: it
// constructs a phone.Phone from flags/environment, registers with a
// SIP server, answers inbound calls automatically, and optionally
// places one outbound call before waiting for a shutdown signal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sebas/gophone/internal/banner"
	"github.com/sebas/gophone/internal/config"
	"github.com/sebas/gophone/internal/logger"
	"github.com/sebas/gophone/phone"
)

func main() {
	logger.InitLogger(os.Stdout)

	dial := flag.String("dial", "", "SIP URI to call once registered (optional)")
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	flag.Parse()

	banner.Print("GOPHONE", []banner.ConfigLine{
		{Label: "Server", Value: fmt.Sprintf("%s:%d", cfg.Server, cfg.Port)},
		{Label: "Username", Value: cfg.Username},
		{Label: "Local Bind", Value: fmt.Sprintf("%s:%d", cfg.LocalIP, cfg.LocalPort)},
		{Label: "RTP Ports", Value: fmt.Sprintf("%d-%d", cfg.RTPPortLow, cfg.RTPPortHigh)},
		{Label: "Behind NAT", Value: fmt.Sprintf("%v", cfg.BehindNAT)},
		{Label: "Log Level", Value: cfg.LogLevel},
	})

	ph := phone.New(cfg.PhoneConfig(), phone.Handlers{
		OnIncomingCall: func(call *phone.Call) {
			slog.Info("incoming call", "call_id", call.CallID, "from", call.RemoteURI)
			if err := call.Answer(cfg.LocalIP); err != nil {
				slog.Error("failed to answer call", "call_id", call.CallID, "error", err)
				return
			}
			slog.Info("call answered", "call_id", call.CallID)
		},
		OnCallEnded: func(call *phone.Call) {
			slog.Info("call ended", "call_id", call.CallID, "state", call.State())
		},
		OnDTMF: func(call *phone.Call, digit rune) {
			slog.Info("dtmf received", "call_id", call.CallID, "digit", string(digit))
		},
		OnError: func(err error) {
			slog.Error("phone error", "error", err)
		},
	})

	if err := ph.Start(); err != nil {
		slog.Error("failed to start phone", "error", err)
		os.Exit(1)
	}
	slog.Info("registered", "server", cfg.Server)

	if *dial != "" {
		call, err := ph.Dial(*dial)
		if err != nil {
			slog.Error("dial failed", "target", *dial, "error", err)
		} else {
			slog.Info("dialing", "call_id", call.CallID, "target", *dial)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down")
	if err := ph.Stop(); err != nil {
		slog.Error("error during shutdown", "error", err)
	}
	slog.Info("stopped")
}
